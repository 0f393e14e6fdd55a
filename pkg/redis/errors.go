package redis

import "errors"

var (
	// ErrFailedToParseRedisConnString is returned when REDIS_URL is not a valid redis URL
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	// ErrRedisNotReady is returned when every ping attempt of Connect failed
	ErrRedisNotReady = errors.New("redis did not become ready within the given time period")
	// ErrEmptyConnectionURL is returned when Connect is called without a URL
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")
	// ErrHealthcheckFailed is returned by Healthcheck when the server does not answer a ping
	ErrHealthcheckFailed = errors.New("redis healthcheck failed")
)
