// Package config loads the demo harness configuration from FANIN_-prefixed
// environment variables, after an optional .env file.
package config
