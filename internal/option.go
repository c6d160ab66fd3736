package internal

import "github.com/starford/muninn/internal/remote"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	configFile string
	client     remote.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithConfigFile names the file the configuration was loaded from and
// enables hot reloading of it.
func WithConfigFile(path string) Option {
	return func(a *application) {
		a.configFile = path
	}
}

// WithClient overrides the remote note store client, bypassing the one
// the configuration would select.
func WithClient(c remote.Client) Option {
	return func(a *application) {
		a.client = c
	}
}
