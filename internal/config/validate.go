package config

import (
	"fmt"
	"net/url"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database.max_conns (%d) must be >= min_conns (%d)",
			c.Database.MaxConns, c.Database.MinConns)
	}

	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source.base_url %q is not an absolute URL", c.Source.BaseURL)
	}

	if c.Source.PageSize <= 0 {
		return fmt.Errorf("source.page_size must be > 0 (got %d)", c.Source.PageSize)
	}
	if c.Source.MaxRetries < 0 {
		return fmt.Errorf("source.max_retries must be >= 0 (got %d)", c.Source.MaxRetries)
	}

	return nil
}
