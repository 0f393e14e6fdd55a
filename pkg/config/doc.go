// Package config loads env-tagged configuration structs.
//
// It wraps github.com/joho/godotenv (optional .env file) and
// github.com/caarlos0/env/v11 (struct tag parsing). Each (type, prefix) pair
// is parsed once per process and cached; ResetCache clears the cache in tests.
//
// # Usage
//
//	var bcfg backlog.Config
//	var rcfg redis.Config
//	config.MustLoad(&bcfg)
//	config.MustLoad(&rcfg)
//
//	client, err := redis.Connect(ctx, rcfg)
//	...
//	b, err := backlog.NewFromConfig(redis.NewStore(client), bcfg)
//
// Use LoadWithPrefix when one process serves several backlogs with the same
// config type.
package config
