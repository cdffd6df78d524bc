package computer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/storage"
	"github.com/hairizuanbinnoorazman/ohacker/telemetry"
)

var (
	ErrBrowserNotAvailable = errors.New("browser not available: session is not entered")
	ErrPageNotAvailable    = errors.New("page not available: session is not entered")
	ErrEngineNotStarted    = errors.New("automation engine not started")
	ErrNoTargetURL         = errors.New("target url not set")
	ErrSessionClosed       = errors.New("session closed while starting")
)

// State of a Session.
type State int

const (
	StateUninitialized State = iota
	StateStarting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Dimensions is the fixed viewport of every session.
var Dimensions = struct{ Width, Height int }{1080, 1080}

const (
	DefaultNavigationTimeout = 60 * time.Second
	DefaultScreenshotName    = "screen.png"
	waitDuration             = time.Second
)

// Point is a device coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Config configures a Session.
type Config struct {
	TargetURL         string
	Headless          bool
	NavigationTimeout time.Duration
	// ScreenshotName is the artifact each screenshot is persisted under.
	ScreenshotName string
}

// Session owns one browser and one page bound to one target address.
type Session struct {
	cfg    Config
	start  StartFunc
	store  storage.ArtifactStore
	logger logger.Logger

	mu      sync.Mutex
	state   State
	engine  Engine
	browser Browser
	page    Page
}

// NewSession creates a session. store may be nil, in which case screenshots
// are not persisted.
func NewSession(cfg Config, start StartFunc, store storage.ArtifactStore, log logger.Logger) *Session {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.ScreenshotName == "" {
		cfg.ScreenshotName = DefaultScreenshotName
	}
	return &Session{
		cfg:    cfg,
		start:  start,
		store:  store,
		logger: log.WithField("target_url", cfg.TargetURL),
	}
}

// State returns the session's lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Engine returns the running automation engine.
func (s *Session) Engine() (Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil, ErrEngineNotStarted
	}
	return s.engine, nil
}

// Browser returns the browser handle while the session is ready.
func (s *Session) Browser() (Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.browser == nil {
		return nil, ErrBrowserNotAvailable
	}
	return s.browser, nil
}

// Page returns the page handle while the session is ready.
func (s *Session) Page() (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || s.page == nil {
		return nil, ErrPageNotAvailable
	}
	return s.page, nil
}

// Enter starts the engine, launches a browser sized to Dimensions and
// navigates to the target. Entering a session that is already started or
// starting is a no-op. On failure the session is torn down before the error
// is returned. An Exit that lands while Enter is starting wins: whatever Enter
// acquired afterwards is released and ErrSessionClosed is returned.
func (s *Session) Enter(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateStarting || s.engine != nil || s.browser != nil {
		s.mu.Unlock()
		s.logger.Info(ctx, "computer session already entered", nil)
		return nil
	}
	if s.cfg.TargetURL == "" {
		s.mu.Unlock()
		return ErrNoTargetURL
	}
	s.state = StateStarting
	s.mu.Unlock()

	s.logger.Info(ctx, "starting automation engine", nil)
	engine, err := s.start(ctx)
	if err != nil {
		s.logger.Error(ctx, "failed to start automation engine", map[string]interface{}{"error": err.Error()})
		s.Exit(ctx)
		return fmt.Errorf("start engine: %w", err)
	}
	s.mu.Lock()
	if s.state != StateStarting {
		s.mu.Unlock()
		s.release(ctx, nil, engine)
		return ErrSessionClosed
	}
	s.engine = engine
	s.mu.Unlock()

	browser, page, err := s.openPage(ctx, engine)
	if err != nil {
		s.Exit(ctx)
		return err
	}

	s.mu.Lock()
	if s.state != StateStarting {
		// Exit already took and stopped the engine.
		s.mu.Unlock()
		s.release(ctx, browser, nil)
		return ErrSessionClosed
	}
	s.browser = browser
	s.page = page
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Info(ctx, "computer ready", nil)
	return nil
}

// openPage launches the browser and navigates. A browser whose page setup
// fails is closed here since it is not yet owned by the session.
func (s *Session) openPage(ctx context.Context, engine Engine) (Browser, Page, error) {
	browser, err := engine.Launch(ctx, LaunchOptions{
		Headless: s.cfg.Headless,
		Width:    Dimensions.Width,
		Height:   Dimensions.Height,
	})
	if err != nil {
		s.logger.Error(ctx, "failed to launch browser", map[string]interface{}{"error": err.Error()})
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	page, err := s.navigate(ctx, browser)
	if err != nil {
		s.logger.Error(ctx, "failed to navigate to target", map[string]interface{}{"error": err.Error()})
		if cerr := browser.Close(); cerr != nil {
			s.logger.Error(ctx, "failed to close browser", map[string]interface{}{"error": cerr.Error()})
		}
		return nil, nil, fmt.Errorf("navigate to %s: %w", s.cfg.TargetURL, err)
	}
	return browser, page, nil
}

func (s *Session) navigate(ctx context.Context, browser Browser) (Page, error) {
	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	if err := page.SetViewport(ctx, Dimensions.Width, Dimensions.Height); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "navigating to target", map[string]interface{}{
		"timeout": s.cfg.NavigationTimeout.String(),
	})
	if err := page.Navigate(ctx, s.cfg.TargetURL, s.cfg.NavigationTimeout); err != nil {
		return nil, err
	}
	return page, nil
}

// Exit releases the session. It is safe to call at any time, any number of
// times. Handles are cleared before any close is attempted; close failures
// are logged and never returned.
func (s *Session) Exit(ctx context.Context) {
	s.mu.Lock()
	browser, engine := s.browser, s.engine
	s.page = nil
	s.browser = nil
	s.engine = nil
	s.state = StateClosed
	s.mu.Unlock()

	s.release(ctx, browser, engine)
}

// release closes browser then stops engine, skipping nil handles.
func (s *Session) release(ctx context.Context, browser Browser, engine Engine) {
	var errs []error
	if browser != nil {
		if err := browser.Close(); err != nil {
			s.logger.Error(ctx, "error closing browser", map[string]interface{}{"error": err.Error()})
			errs = append(errs, err)
		}
	}
	if engine != nil {
		if err := engine.Stop(); err != nil {
			s.logger.Error(ctx, "error stopping automation engine", map[string]interface{}{"error": err.Error()})
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Warn(ctx, "computer stopped with errors", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info(ctx, "computer stopped", nil)
}

// Screenshot captures the visible viewport, persists a copy and returns it
// base64 encoded. It returns "" on any failure.
func (s *Session) Screenshot(ctx context.Context) string {
	b64, err := s.screenshot(ctx)
	telemetry.RecordAction("screenshot", err)
	if err != nil {
		s.logger.Error(ctx, "error taking screenshot", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return b64
}

func (s *Session) screenshot(ctx context.Context) (string, error) {
	page, err := s.Page()
	if err != nil {
		return "", err
	}
	png, err := page.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	if s.store != nil {
		if err := s.store.Put(ctx, s.cfg.ScreenshotName, png); err != nil {
			return "", fmt.Errorf("persist screenshot: %w", err)
		}
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// Click clicks at (x, y). Unrecognized buttons are coerced to left.
func (s *Session) Click(ctx context.Context, x, y int, button string) {
	b := NormalizeButton(button)
	s.do(ctx, "click", map[string]interface{}{"x": x, "y": y, "button": string(b)}, func(p Page) error {
		return p.Click(ctx, x, y, b, 1)
	})
}

// DoubleClick double clicks at (x, y) with the left button.
func (s *Session) DoubleClick(ctx context.Context, x, y int) {
	s.do(ctx, "double_click", map[string]interface{}{"x": x, "y": y}, func(p Page) error {
		return p.Click(ctx, x, y, ButtonLeft, 2)
	})
}

// Move moves the pointer to (x, y).
func (s *Session) Move(ctx context.Context, x, y int) {
	s.do(ctx, "move", map[string]interface{}{"x": x, "y": y}, func(p Page) error {
		return p.MouseMove(ctx, x, y)
	})
}

// Scroll moves the pointer to (x, y) then scrolls the viewport by (dx, dy).
func (s *Session) Scroll(ctx context.Context, x, y, dx, dy int) {
	s.do(ctx, "scroll", map[string]interface{}{"x": x, "y": y, "scroll_x": dx, "scroll_y": dy}, func(p Page) error {
		if err := p.MouseMove(ctx, x, y); err != nil {
			return err
		}
		return p.ScrollBy(ctx, dx, dy)
	})
}

// Type types literal text.
func (s *Session) Type(ctx context.Context, text string) {
	s.do(ctx, "type", map[string]interface{}{"text": truncate(text, 50)}, func(p Page) error {
		return p.InsertText(ctx, text)
	})
}

// Keypress presses all keys down in order then releases them in reverse, so
// ["ctrl", "a"] releases a before ctrl. Empty input is a no-op.
func (s *Session) Keypress(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	mapped := NormalizeKeys(keys)
	s.do(ctx, "keypress", map[string]interface{}{"keys": strings.Join(mapped, "+")}, func(p Page) error {
		for _, k := range mapped {
			if err := p.KeyDown(ctx, k); err != nil {
				return err
			}
		}
		for i := len(mapped) - 1; i >= 0; i-- {
			if err := p.KeyUp(ctx, mapped[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Drag presses at the first point, moves through the rest and releases. Paths
// shorter than two points do nothing. A failure mid-drag still attempts the
// release so the pointer is not left pressed.
func (s *Session) Drag(ctx context.Context, path []Point) {
	if len(path) < 2 {
		s.logger.Warn(ctx, "drag path requires at least two points", map[string]interface{}{"points": len(path)})
		return
	}
	s.do(ctx, "drag", map[string]interface{}{"points": len(path)}, func(p Page) error {
		err := drag(ctx, p, path)
		if err != nil {
			if uerr := p.MouseUp(ctx, ButtonLeft); uerr != nil {
				s.logger.Debug(ctx, "release after failed drag", map[string]interface{}{"error": uerr.Error()})
			}
		}
		return err
	})
}

func drag(ctx context.Context, p Page, path []Point) error {
	if err := p.MouseMove(ctx, path[0].X, path[0].Y); err != nil {
		return err
	}
	if err := p.MouseDown(ctx, ButtonLeft); err != nil {
		return err
	}
	for _, pt := range path[1:] {
		if err := p.MouseMove(ctx, pt.X, pt.Y); err != nil {
			return err
		}
	}
	return p.MouseUp(ctx, ButtonLeft)
}

// Wait pauses for one second or until ctx is done.
func (s *Session) Wait(ctx context.Context) {
	t := time.NewTimer(waitDuration)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	telemetry.RecordAction("wait", nil)
}

// Reload reloads the current page.
func (s *Session) Reload(ctx context.Context) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	return page.Reload(ctx)
}

// URL returns the current page address.
func (s *Session) URL(ctx context.Context) (string, error) {
	page, err := s.Page()
	if err != nil {
		return "", err
	}
	return page.URL(ctx)
}

// ClickElement clicks the first element matching selector.
func (s *Session) ClickElement(ctx context.Context, selector string) error {
	page, err := s.Page()
	if err != nil {
		return err
	}
	return page.ClickSelector(ctx, selector, s.cfg.NavigationTimeout)
}

// do runs one capability, logging and swallowing any failure.
func (s *Session) do(ctx context.Context, action string, fields map[string]interface{}, fn func(Page) error) {
	page, err := s.Page()
	if err == nil {
		err = fn(page)
	}
	telemetry.RecordAction(action, err)

	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["action"] = action
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Error(ctx, "computer action failed", fields)
		return
	}
	s.logger.Debug(ctx, "computer action", fields)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
