package backlog

import "time"

// Config holds the backlog configuration loaded from the environment
type Config struct {
	Namespace          string        `env:"KANBAN_NAMESPACE" envDefault:"default"`
	Queue              string        `env:"KANBAN_QUEUE" envDefault:"tasks"`
	Item               string        `env:"KANBAN_ITEM" envDefault:"task"`
	LeaseDuration      time.Duration `env:"KANBAN_LEASE_DURATION" envDefault:"3s"`
	WaitTimeout        time.Duration `env:"KANBAN_WAIT_TIMEOUT" envDefault:"5s"`
	GroomInterval      time.Duration `env:"KANBAN_GROOM_INTERVAL" envDefault:"30s"`
	MaxConcurrentTasks int           `env:"KANBAN_MAX_CONCURRENT_TASKS" envDefault:"1"`
}

// Options converts the config into backlog options.
func (c Config) Options() []Option {
	return []Option{
		WithNamespace(c.Namespace),
		WithQueue(c.Queue),
		WithItem(c.Item),
		WithLeaseDuration(c.LeaseDuration),
		WithWaitTimeout(c.WaitTimeout),
	}
}

// GroomerOptions converts the config into groomer options.
func (c Config) GroomerOptions() []GroomerOption {
	return []GroomerOption{WithGroomInterval(c.GroomInterval)}
}

// WorkerOptions converts the config into worker options.
func (c Config) WorkerOptions() []WorkerOption {
	return []WorkerOption{WithMaxConcurrentTasks(c.MaxConcurrentTasks)}
}
