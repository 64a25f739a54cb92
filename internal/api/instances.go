package api

import (
	"context"
	"fmt"

	"github.com/arcletproject/entari-console/internal/instance"
)

// ListInstances fetches the full instance list.
func (c *Client) ListInstances(ctx context.Context) ([]instance.Instance, error) {
	var list []instance.Instance
	if err := c.do(ctx, "GET", "/api/instances", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateInstance creates a named instance.
func (c *Client) CreateInstance(ctx context.Context, req CreateInstanceRequest) error {
	return c.do(ctx, "POST", "/api/instances", req, nil)
}

// StartInstance asks the backend to start the instance.
func (c *Client) StartInstance(ctx context.Context, id int) error {
	return c.do(ctx, "POST", fmt.Sprintf("/api/instances/%d/start", id), nil, nil)
}

// StopInstance asks the backend to stop the instance.
func (c *Client) StopInstance(ctx context.Context, id int) error {
	return c.do(ctx, "POST", fmt.Sprintf("/api/instances/%d/stop", id), nil, nil)
}

// DeleteInstance removes the instance and its backing config file.
func (c *Client) DeleteInstance(ctx context.Context, id int) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/api/instances/%d", id), nil, nil)
}

// UpdateInstanceConfig replaces the instance's config mapping.
func (c *Client) UpdateInstanceConfig(ctx context.Context, id int, config map[string]any) error {
	return c.do(ctx, "PUT", fmt.Sprintf("/api/instances/%d/config", id), config, nil)
}
