package config

import "time"

// Default returns a starter Config for a given export path, suitable for
// `exportd init` to write out as a sample YAML file.
func Default(exportPath string) *Config {
	return &Config{
		Listen: ListenConfig{Host: "0.0.0.0", Port: 2049},
		Export: ExportConfig{
			Path:     exportPath,
			Name:     exportPath,
			ReadOnly: false,
		},
		Logging: LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Metrics: MetricsConfig{Enabled: true, Host: "127.0.0.1", Port: 9090},

		IdleTimeout:     5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}
