package api

import "context"

// GetConfig fetches the global runtime configuration.
func (c *Client) GetConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := c.do(ctx, "GET", "/config", nil, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig replaces the global runtime configuration.
func (c *Client) SaveConfig(ctx context.Context, cfg Config) (SaveResult, error) {
	var result SaveResult
	if err := c.do(ctx, "POST", "/config", cfg, &result); err != nil {
		return SaveResult{}, err
	}
	return result, nil
}
