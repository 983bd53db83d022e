package config

// AppConfig bundles every per-concern config the server binary needs.
type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
}

// LoadApp reads all concerns from the environment in one shot. The first
// concern that fails to parse aborts the load.
func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Log:    logCfg,
	}, nil
}
