package hypr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Controller drives compositor-side state through dispatchers.
type Controller interface {
	SetSubmap(ctx context.Context, name string) error
	ResetSubmap(ctx context.Context) error
}

var _ Controller = (*Client)(nil)

// Dispatch runs "dispatch <args>" in plain mode; the server answers "ok".
func (c *Client) Dispatch(ctx context.Context, args ...string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return errors.New("dispatch requires a dispatcher name")
	}
	payload := "dispatch " + strings.Join(args, " ")
	reply, err := c.Raw(ctx, payload)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", args[0], err)
	}
	trimmed := strings.TrimSpace(string(reply))
	if trimmed != "ok" {
		return fmt.Errorf("dispatch %s failed: %s", args[0], trimmed)
	}
	return nil
}

func (c *Client) SetSubmap(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("submap name must not be empty")
	}
	return c.Dispatch(ctx, "submap", name)
}

func (c *Client) ResetSubmap(ctx context.Context) error {
	return c.SetSubmap(ctx, "reset")
}

// Notify shows a compositor notification. An empty color selects the default.
func (c *Client) Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	return c.Dispatch(ctx, "notify", strconv.Itoa(icon), strconv.Itoa(timeoutMS), color, text)
}

// DismissNotify dismisses active compositor notifications.
func (c *Client) DismissNotify(ctx context.Context) error {
	return c.Dispatch(ctx, "dismissnotify")
}
