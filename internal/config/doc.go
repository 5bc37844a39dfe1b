// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Variables can also come from dotenv files loaded with LoadEnv before Load is called.
package config
