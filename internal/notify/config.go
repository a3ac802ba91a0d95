package notify

// Config holds SMTP settings and the administrator address. Values are
// injected by the caller; this package never reads the environment.
type Config struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Admin    string
}

// DefaultConfig returns a configuration with notifications disabled.
func DefaultConfig() Config {
	return Config{Port: 587}
}

// Validate checks the fields required when notifications are enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Host == "" {
		return ErrInvalidConfig{Field: "Host", Reason: "smtp host is required"}
	}
	if c.Port <= 0 {
		return ErrInvalidConfig{Field: "Port", Reason: "smtp port must be positive"}
	}
	if c.From == "" {
		return ErrInvalidConfig{Field: "From", Reason: "sender address is required"}
	}
	if c.Admin == "" {
		return ErrInvalidConfig{Field: "Admin", Reason: "administrator address is required"}
	}
	return nil
}
