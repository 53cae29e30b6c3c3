// Package config loads the service settings from an optional YAML file and
// REFLECTIONS_* environment variables with viper, applies defaults and
// validates the result with struct tags.
package config
