package config

import "fmt"

func validate(c *Config) error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("postgres store requires a database URL (DATABASE_URL or --database-url)")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store driver %q (want postgres or memory)", c.StoreDriver)
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("nav timeout must be > 0")
	}
	if c.MaxScrolls <= 0 {
		return fmt.Errorf("max scrolls must be > 0")
	}
	if c.NavRateRPS <= 0 {
		return fmt.Errorf("nav rate must be > 0")
	}
	return nil
}
