package computer

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// RodEngine launches local Chromium instances through go-rod.
type RodEngine struct {
	mu        sync.Mutex
	launchers []*launcher.Launcher
}

// StartRod is the StartFunc for the go-rod engine.
func StartRod(ctx context.Context) (Engine, error) {
	return &RodEngine{}, nil
}

// Launch starts a browser process and connects to it.
func (e *RodEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", opts.Width, opts.Height))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	e.mu.Lock()
	e.launchers = append(e.launchers, l)
	e.mu.Unlock()

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}
	return &rodBrowser{browser: browser}, nil
}

// Stop kills every browser process started by this engine.
func (e *RodEngine) Stop() error {
	e.mu.Lock()
	launchers := e.launchers
	e.launchers = nil
	e.mu.Unlock()

	for _, l := range launchers {
		l.Kill()
		l.Cleanup()
	}
	return nil
}

type rodBrowser struct {
	browser *rod.Browser
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	// detach from the setup context so later calls are not bound to it
	return &rodPage{page: page.Context(context.Background())}, nil
}

func (b *rodBrowser) Close() error {
	return b.browser.Close()
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) with(ctx context.Context) *rod.Page {
	return p.page.Context(ctx)
}

func (p *rodPage) SetViewport(ctx context.Context, width, height int) error {
	return p.with(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

// Navigate returns once the document has been parsed (DOMContentLoaded),
// without waiting for images and other subresources.
func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page := p.with(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return err
	}
	wait()
	return page.GetContext().Err()
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.with(ctx).Screenshot(false, nil)
}

func (p *rodPage) MouseMove(ctx context.Context, x, y int) error {
	return p.with(ctx).Mouse.MoveTo(proto.Point{X: float64(x), Y: float64(y)})
}

func (p *rodPage) MouseDown(ctx context.Context, button Button) error {
	return p.with(ctx).Mouse.Down(rodButton(button), 1)
}

func (p *rodPage) MouseUp(ctx context.Context, button Button) error {
	return p.with(ctx).Mouse.Up(rodButton(button), 1)
}

func (p *rodPage) Click(ctx context.Context, x, y int, button Button, count int) error {
	page := p.with(ctx)
	if err := page.Mouse.MoveTo(proto.Point{X: float64(x), Y: float64(y)}); err != nil {
		return err
	}
	return page.Mouse.Click(rodButton(button), count)
}

func (p *rodPage) KeyDown(ctx context.Context, key string) (err error) {
	k, err := deviceKey(key)
	if err != nil {
		return err
	}
	defer recoverKey(key, &err)
	return p.with(ctx).Keyboard.Press(k)
}

func (p *rodPage) KeyUp(ctx context.Context, key string) (err error) {
	k, err := deviceKey(key)
	if err != nil {
		return err
	}
	defer recoverKey(key, &err)
	return p.with(ctx).Keyboard.Release(k)
}

// recoverKey turns go-rod's panic on keys missing from its keymap into an error.
func recoverKey(key string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("unsupported key %q: %v", key, r)
	}
}

// InsertText types text key by key so pages see keydown and keyup. Runes
// outside the device keymap, such as most non-ASCII text, are inserted
// directly instead.
func (p *rodPage) InsertText(ctx context.Context, text string) error {
	page := p.with(ctx)
	for _, seg := range splitTypeable(text) {
		var err error
		if seg.keys != nil {
			err = page.Keyboard.Type(seg.keys...)
		} else {
			err = page.InsertText(seg.text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// textSegment is either a run of typeable keys or literal text to insert.
type textSegment struct {
	keys []input.Key
	text string
}

func splitTypeable(text string) []textSegment {
	var segs []textSegment
	for _, r := range text {
		k, ok := typeableKey(r)
		last := len(segs) - 1
		switch {
		case ok && last >= 0 && segs[last].keys != nil:
			segs[last].keys = append(segs[last].keys, k)
		case ok:
			segs = append(segs, textSegment{keys: []input.Key{k}})
		case last >= 0 && segs[last].keys == nil:
			segs[last].text += string(r)
		default:
			segs = append(segs, textSegment{text: string(r)})
		}
	}
	return segs
}

// typeableKey reports whether r has a device key. go-rod panics on keys it
// does not know, so the lookup is guarded.
func typeableKey(r rune) (k input.Key, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	k = input.Key(r)
	k.Info()
	return k, true
}

func (p *rodPage) ScrollBy(ctx context.Context, dx, dy int) error {
	_, err := p.with(ctx).Eval(`(x, y) => window.scrollBy(x, y)`, dx, dy)
	return err
}

func (p *rodPage) Reload(ctx context.Context) error {
	return p.with(ctx).Reload()
}

func (p *rodPage) URL(ctx context.Context) (string, error) {
	info, err := p.with(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) ClickSelector(ctx context.Context, selector string, timeout time.Duration) error {
	page := p.with(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	el, err := page.Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func rodButton(b Button) proto.InputMouseButton {
	switch b {
	case ButtonMiddle:
		return proto.InputMouseButtonMiddle
	case ButtonRight:
		return proto.InputMouseButtonRight
	default:
		return proto.InputMouseButtonLeft
	}
}

// namedKeys resolves canonical key names to go-rod keys. Modifiers resolve
// to their left-hand variant.
var namedKeys = map[string]input.Key{
	"Alt":        input.AltLeft,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
	"ArrowUp":    input.ArrowUp,
	"Backslash":  input.Backslash,
	"Backspace":  input.Backspace,
	"CapsLock":   input.CapsLock,
	"Control":    input.ControlLeft,
	"Delete":     input.Delete,
	"Divide":     input.NumpadDivide,
	"End":        input.End,
	"Enter":      input.Enter,
	"Escape":     input.Escape,
	"Home":       input.Home,
	"Insert":     input.Insert,
	"Meta":       input.MetaLeft,
	"PageDown":   input.PageDown,
	"PageUp":     input.PageUp,
	"Shift":      input.ShiftLeft,
	" ":          input.Space,
	"Tab":        input.Tab,
	"F1":         input.F1,
	"F2":         input.F2,
	"F3":         input.F3,
	"F4":         input.F4,
	"F5":         input.F5,
	"F6":         input.F6,
	"F7":         input.F7,
	"F8":         input.F8,
	"F9":         input.F9,
	"F10":        input.F10,
	"F11":        input.F11,
	"F12":        input.F12,
}

// deviceKey resolves a canonical key name. Single characters map to their
// own key.
func deviceKey(name string) (input.Key, error) {
	if k, ok := namedKeys[name]; ok {
		return k, nil
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return input.Key(r), nil
	}
	return 0, fmt.Errorf("unsupported key %q", name)
}
