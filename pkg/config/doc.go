// Package config loads the service configuration from a YAML file and fills
// in defaults and secrets taken from the environment.
package config
