package computer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// fakeEngine records every primitive in calls so tests can assert order.
type fakeEngine struct {
	mu       sync.Mutex
	calls    []string
	launches int

	startErr    error
	launchErr   error
	navigateErr error
	closeErr    error
	stopErr     error

	page *fakePage
}

func newFakeEngine() *fakeEngine {
	e := &fakeEngine{}
	e.page = &fakePage{engine: e, failOn: map[string]error{}, png: []byte("png-bytes")}
	return e
}

func (e *fakeEngine) record(format string, args ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, fmt.Sprintf(format, args...))
}

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *fakeEngine) start(ctx context.Context) (Engine, error) {
	e.record("start")
	if e.startErr != nil {
		return nil, e.startErr
	}
	return e, nil
}

func (e *fakeEngine) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	e.record("launch headless=%t %dx%d", opts.Headless, opts.Width, opts.Height)
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	e.mu.Lock()
	e.launches++
	e.mu.Unlock()
	return &fakeBrowser{engine: e}, nil
}

func (e *fakeEngine) Stop() error {
	e.record("stop")
	return e.stopErr
}

type fakeBrowser struct {
	engine *fakeEngine
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	b.engine.record("new_page")
	return b.engine.page, nil
}

func (b *fakeBrowser) Close() error {
	b.engine.record("browser.close")
	return b.engine.closeErr
}

type fakePage struct {
	engine *fakeEngine
	failOn map[string]error
	png    []byte
	url    string
}

func (p *fakePage) fail(op string) error {
	return p.failOn[op]
}

func (p *fakePage) SetViewport(ctx context.Context, width, height int) error {
	p.engine.record("viewport %dx%d", width, height)
	return nil
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.engine.record("goto %s %s", url, timeout)
	if p.engine.navigateErr != nil {
		return p.engine.navigateErr
	}
	p.url = url
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.engine.record("screenshot")
	if err := p.fail("screenshot"); err != nil {
		return nil, err
	}
	return p.png, nil
}

func (p *fakePage) MouseMove(ctx context.Context, x, y int) error {
	p.engine.record("mouse.move %d,%d", x, y)
	if err := p.fail(fmt.Sprintf("mouse.move %d,%d", x, y)); err != nil {
		return err
	}
	return p.fail("mouse.move")
}

func (p *fakePage) MouseDown(ctx context.Context, button Button) error {
	p.engine.record("mouse.down %s", button)
	return p.fail("mouse.down")
}

func (p *fakePage) MouseUp(ctx context.Context, button Button) error {
	p.engine.record("mouse.up %s", button)
	return p.fail("mouse.up")
}

func (p *fakePage) Click(ctx context.Context, x, y int, button Button, count int) error {
	p.engine.record("mouse.click %d,%d %s x%d", x, y, button, count)
	return p.fail("mouse.click")
}

func (p *fakePage) KeyDown(ctx context.Context, key string) error {
	p.engine.record("key.down %s", key)
	return p.fail("key.down")
}

func (p *fakePage) KeyUp(ctx context.Context, key string) error {
	p.engine.record("key.up %s", key)
	return p.fail("key.up")
}

func (p *fakePage) InsertText(ctx context.Context, text string) error {
	p.engine.record("type %s", text)
	return p.fail("type")
}

func (p *fakePage) ScrollBy(ctx context.Context, dx, dy int) error {
	p.engine.record("scroll %d,%d", dx, dy)
	return p.fail("scroll")
}

func (p *fakePage) Reload(ctx context.Context) error {
	p.engine.record("reload")
	return p.fail("reload")
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	return p.url, p.fail("url")
}

func (p *fakePage) ClickSelector(ctx context.Context, selector string, timeout time.Duration) error {
	p.engine.record("click_selector %s", selector)
	return p.fail("click_selector")
}

var errBoom = errors.New("boom")
