package config

// NewAppWithPath builds an App pointing at a config file for testing
func NewAppWithPath(path string) *App {
	return &App{path: path}
}

var ParseOptionalDuration = parseOptionalDuration
