package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch reloads the config file on change and invokes onChange with the
// fresh log level. Only the log level is hot-swappable; everything else
// requires a restart because it shapes already-running sessions.
func Watch(v *viper.Viper, logger *slog.Logger, onChange func(level string)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("config file changed", "file", e.Name, "op", e.Op.String())
		onChange(v.GetString("log.level"))
	})
	v.WatchConfig()
}
