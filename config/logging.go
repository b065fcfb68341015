package config

import "fmt"

// LoggingConfig controls application log output.
type LoggingConfig struct {
	// Level is the minimum zerolog level: debug, info, warn or error.
	Level string `json:"level"`
	// Notifications selects the notification dispatcher: "mqtt", "log" or "nop".
	Notifications string `json:"notifications"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Notifications == "" {
		c.Notifications = "log"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %s", c.Level)
	}
	switch c.Notifications {
	case "mqtt", "log", "nop":
	default:
		return fmt.Errorf("unknown notification dispatcher %s", c.Notifications)
	}
	return nil
}
