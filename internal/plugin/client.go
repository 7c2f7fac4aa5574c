package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedAction is returned when a plugin's manifest does not list an action.
	ErrUnsupportedAction = errors.New("action not supported by plugin")
	// ErrActionFailed wraps a plugin's own failure report.
	ErrActionFailed = errors.New("plugin action failed")
)

// Caller runs one action of a plugin and returns the response data.
type Caller interface {
	Call(ctx context.Context, action, gesture string, params any) (*Response, error)
}

// Client binds a single named plugin to an executor.
type Client struct {
	manager  *Manager
	executor *Executor
	name     string
}

// NewClient returns a Client for the plugin called name. The plugin is
// looked up on every call so a rediscovery takes effect immediately.
func NewClient(manager *Manager, executor *Executor, name string) *Client {
	return &Client{
		manager:  manager,
		executor: executor,
		name:     name,
	}
}

// Name returns the plugin name.
func (c *Client) Name() string {
	return c.name
}

// Call executes action with params encoded as JSON. A response with
// success=false is returned as ErrActionFailed.
func (c *Client) Call(ctx context.Context, action, gesture string, params any) (*Response, error) {
	plug, err := c.manager.Get(c.name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	if !plug.Manifest.Supports(action) {
		return nil, fmt.Errorf("%s %s: %w", c.name, action, ErrUnsupportedAction)
	}

	req := &Request{
		Action:  action,
		Gesture: gesture,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = raw
	}

	resp, err := c.executor.Execute(ctx, plug, req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", c.name, action, err)
	}
	if !resp.Success {
		return resp, fmt.Errorf("%s %s: %w: %s", c.name, action, ErrActionFailed, resp.Error)
	}
	return resp, nil
}
