package computer

import (
	"context"
	"time"
)

// LaunchOptions configure a browser launch.
type LaunchOptions struct {
	Headless bool
	Width    int
	Height   int
}

// Engine is the automation runtime that launches browsers.
type Engine interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
	Stop() error
}

// StartFunc starts an automation engine.
type StartFunc func(ctx context.Context) (Engine, error)

// Browser is one launched browser instance.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one browser tab and its input primitives. Coordinates are device
// pixels; keys are canonical names as produced by NormalizeKey.
type Page interface {
	SetViewport(ctx context.Context, width, height int) error
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Screenshot(ctx context.Context) ([]byte, error)

	MouseMove(ctx context.Context, x, y int) error
	MouseDown(ctx context.Context, button Button) error
	MouseUp(ctx context.Context, button Button) error
	Click(ctx context.Context, x, y int, button Button, count int) error

	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	InsertText(ctx context.Context, text string) error

	ScrollBy(ctx context.Context, dx, dy int) error
	Reload(ctx context.Context) error
	URL(ctx context.Context) (string, error)
	ClickSelector(ctx context.Context, selector string, timeout time.Duration) error
}
