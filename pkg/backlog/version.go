package backlog

// Version is injected at build time:
//
//	go build -ldflags "-X github.com/dmitrymomot/kanban/pkg/backlog.Version=1.2.3"
var Version = "dev"
