package api

import (
	"context"
	"net/url"
)

type pluginNameRequest struct {
	Name string `json:"name"`
}

// ListPlugins returns every plugin known to the backend.
func (c *Client) ListPlugins(ctx context.Context) ([]Plugin, error) {
	var list []Plugin
	if err := c.do(ctx, "GET", "/plugins", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SearchPlugins queries the plugin index by keyword.
func (c *Client) SearchPlugins(ctx context.Context, keyword string) ([]Plugin, error) {
	var list []Plugin
	path := "/plugins/search?q=" + url.QueryEscape(keyword)
	if err := c.do(ctx, "GET", path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreatePlugin scaffolds a new local plugin.
func (c *Client) CreatePlugin(ctx context.Context, name string) error {
	return c.do(ctx, "POST", "/plugins", pluginNameRequest{Name: name}, nil)
}

// InstallPlugin installs a plugin by name.
func (c *Client) InstallPlugin(ctx context.Context, name string) error {
	return c.do(ctx, "POST", "/plugins/install", pluginNameRequest{Name: name}, nil)
}

// UninstallPlugin removes an installed plugin.
func (c *Client) UninstallPlugin(ctx context.Context, name string) error {
	return c.do(ctx, "POST", "/plugins/uninstall", pluginNameRequest{Name: name}, nil)
}

// LoadPlugin activates an installed plugin.
func (c *Client) LoadPlugin(ctx context.Context, name string) error {
	return c.do(ctx, "POST", "/plugins/load", pluginNameRequest{Name: name}, nil)
}

// UnloadPlugin deactivates a plugin without uninstalling it.
func (c *Client) UnloadPlugin(ctx context.Context, name string) error {
	return c.do(ctx, "POST", "/plugins/unload", pluginNameRequest{Name: name}, nil)
}

// ReloadPlugin restarts a loaded plugin.
func (c *Client) ReloadPlugin(ctx context.Context, name string) error {
	return c.do(ctx, "POST", "/plugins/reload", pluginNameRequest{Name: name}, nil)
}

// SavePlugin persists plugin metadata/config changes.
func (c *Client) SavePlugin(ctx context.Context, plugin Plugin) error {
	return c.do(ctx, "POST", "/plugins/save", plugin, nil)
}
