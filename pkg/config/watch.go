package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/dittopnfs/internal/logger"
	"github.com/spf13/viper"
)

// Watch loads the configuration like Load and then keeps watching the file.
//
// onChange receives every subsequent configuration that decodes and
// validates. Invalid edits are logged and ignored so the running process
// keeps its last good configuration.
func Watch(configPath string, onChange func(*Config)) (*Config, error) {
	if configPath == "" {
		configPath = GetDefaultConfigPath()
	}

	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring configuration change in %s: %v", e.Name, err)
			return
		}
		logger.Info("Configuration reloaded from %s", e.Name)
		onChange(next)
	})
	v.WatchConfig()

	return cfg, nil
}
