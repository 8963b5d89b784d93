// Package playwright implements the browser transport on
// playwright-community/playwright-go. It is the one concrete Transport this
// repo ships; everything above it is transport-agnostic.
package playwright

import (
	"fmt"
	"io"
	"sync"

	pw "github.com/playwright-community/playwright-go"

	"github.com/rishabhcli/browser-use/pkg/browser"
)

// Options configures the launched browser.
type Options struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int

	// TimeoutMs is the default playwright operation timeout.
	TimeoutMs float64
}

// Transport drives a single Chromium context through playwright. It is not
// safe for concurrent use; the dispatcher serializes access.
type Transport struct {
	pw      *pw.Playwright
	browser pw.Browser
	context pw.BrowserContext
	page    pw.Page

	// pendingDialog is the native dialog currently blocking the page, if
	// any. Playwright reports dialogs by event; the transport parks them
	// here so the poll-based monitor can resolve them.
	dialogMu      sync.Mutex
	pendingDialog pw.Dialog
}

// New launches playwright and opens one browser context with a single page.
func New(opts Options) (*Transport, error) {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1280
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 720
	}
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = 30000
	}

	runOpts := &pw.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := pw.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	instance, err := pw.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	b, err := instance.Chromium.Launch(pw.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		instance.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := b.NewContext(pw.BrowserNewContextOptions{
		Viewport: &pw.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight},
	})
	if err != nil {
		b.Close()
		instance.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		b.Close()
		instance.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(opts.TimeoutMs)

	t := &Transport{pw: instance, browser: b, context: context, page: page}
	t.watchDialogs(page)
	return t, nil
}

// watchDialogs parks raised dialogs for the poll-based monitor instead of
// letting playwright auto-dismiss them.
func (t *Transport) watchDialogs(page pw.Page) {
	page.OnDialog(func(dialog pw.Dialog) {
		t.dialogMu.Lock()
		t.pendingDialog = dialog
		t.dialogMu.Unlock()
	})
}

// Close shuts down the page, context, browser, and playwright itself.
func (t *Transport) Close() error {
	_ = t.page.Close()
	_ = t.context.Close()
	_ = t.browser.Close()
	if err := t.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

func selectorFor(loc browser.Locator) string {
	if loc.Strategy == browser.LocatorXPath {
		return "xpath=" + loc.Value
	}
	return loc.Value
}

func (t *Transport) Navigate(url string) error {
	if _, err := t.page.Goto(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (t *Transport) NewTab(url string) (browser.TabInfo, error) {
	page, err := t.context.NewPage()
	if err != nil {
		return browser.TabInfo{}, fmt.Errorf("failed to open tab: %w", err)
	}
	t.watchDialogs(page)
	if _, err := page.Goto(url); err != nil {
		return browser.TabInfo{}, fmt.Errorf("navigation failed: %w", err)
	}
	t.page = page
	return t.currentTabInfo(), nil
}

func (t *Transport) Back() error {
	if _, err := t.page.GoBack(); err != nil {
		return fmt.Errorf("back failed: %w", err)
	}
	return nil
}

func (t *Transport) Forward() error {
	if _, err := t.page.GoForward(); err != nil {
		return fmt.Errorf("forward failed: %w", err)
	}
	return nil
}

func (t *Transport) Refresh() error {
	if _, err := t.page.Reload(); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return nil
}

func (t *Transport) ClickAt(x, y float64) error {
	if err := t.page.Mouse().Click(x, y); err != nil {
		return fmt.Errorf("click at (%v, %v) failed: %w", x, y, err)
	}
	return nil
}

func (t *Transport) ClickSelector(loc browser.Locator) error {
	if err := t.page.Click(selectorFor(loc)); err != nil {
		return fmt.Errorf("click on %q failed: %w", loc.Value, err)
	}
	return nil
}

func (t *Transport) TypeInto(loc browser.Locator, text string, clear bool) error {
	selector := selectorFor(loc)
	if clear {
		if err := t.page.Fill(selector, text); err != nil {
			return fmt.Errorf("fill on %q failed: %w", loc.Value, err)
		}
		return nil
	}
	if err := t.page.Click(selector); err != nil {
		return fmt.Errorf("focus on %q failed: %w", loc.Value, err)
	}
	if err := t.page.Keyboard().Type(text); err != nil {
		return fmt.Errorf("type on %q failed: %w", loc.Value, err)
	}
	return nil
}

func (t *Transport) TypeRaw(text string) error {
	if err := t.page.Keyboard().Type(text); err != nil {
		return fmt.Errorf("typing failed: %w", err)
	}
	return nil
}

func (t *Transport) UploadFile(loc browser.Locator, path string) error {
	if err := t.page.SetInputFiles(selectorFor(loc), []string{path}); err != nil {
		return fmt.Errorf("upload to %q failed: %w", loc.Value, err)
	}
	return nil
}

func (t *Transport) SendKeys(combo string) error {
	for _, key := range browser.NormalizeKeyCombo(combo) {
		if err := t.page.Keyboard().Press(key); err != nil {
			return fmt.Errorf("key press %q failed: %w", key, err)
		}
	}
	return nil
}

// RunScript evaluates an arrow-function expression, passing args as the
// single array argument the shared scripts expect.
func (t *Transport) RunScript(expr string, args ...any) (any, error) {
	var result any
	var err error
	if len(args) == 0 {
		result, err = t.page.Evaluate(expr)
	} else {
		result, err = t.page.Evaluate(expr, args)
	}
	if err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	return result, nil
}

func (t *Transport) Screenshot() ([]byte, error) {
	data, err := t.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

func (t *Transport) URL() (string, error) {
	return t.page.URL(), nil
}

func (t *Transport) Title() (string, error) {
	title, err := t.page.Title()
	if err != nil {
		return "", fmt.Errorf("title read failed: %w", err)
	}
	return title, nil
}

func (t *Transport) currentTabInfo() browser.TabInfo {
	pages := t.context.Pages()
	info := browser.TabInfo{Handle: fmt.Sprintf("%p", t.page), URL: t.page.URL()}
	for i, page := range pages {
		if page == t.page {
			info.Index = i
			break
		}
	}
	if title, err := t.page.Title(); err == nil {
		info.Title = title
	}
	return info
}

func (t *Transport) ListTabs() ([]browser.TabInfo, error) {
	pages := t.context.Pages()
	tabs := make([]browser.TabInfo, 0, len(pages))
	for i, page := range pages {
		tab := browser.TabInfo{Index: i, Handle: fmt.Sprintf("%p", page), URL: page.URL()}
		if title, err := page.Title(); err == nil {
			tab.Title = title
		}
		tabs = append(tabs, tab)
	}
	return tabs, nil
}

func (t *Transport) SwitchTab(index int) (browser.TabInfo, error) {
	pages := t.context.Pages()
	if index < 0 || index >= len(pages) {
		return browser.TabInfo{}, fmt.Errorf("tab index %d out of range 0..%d", index, len(pages)-1)
	}
	page := pages[index]
	if err := page.BringToFront(); err != nil {
		return browser.TabInfo{}, fmt.Errorf("tab switch failed: %w", err)
	}
	t.page = page
	return t.currentTabInfo(), nil
}

func (t *Transport) CloseTab() (*browser.TabInfo, error) {
	if err := t.page.Close(); err != nil {
		return nil, fmt.Errorf("tab close failed: %w", err)
	}
	pages := t.context.Pages()
	if len(pages) == 0 {
		return nil, nil
	}
	t.page = pages[len(pages)-1]
	if err := t.page.BringToFront(); err != nil {
		return nil, fmt.Errorf("tab switch after close failed: %w", err)
	}
	info := t.currentTabInfo()
	return &info, nil
}

func (t *Transport) GetCookies() ([]browser.Cookie, error) {
	cookies, err := t.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("cookie read failed: %w", err)
	}
	out := make([]browser.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := browser.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			cookie.SameSite = string(*c.SameSite)
		}
		out = append(out, cookie)
	}
	return out, nil
}

func (t *Transport) SetCookies(cookies []browser.Cookie) error {
	converted := make([]pw.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := pw.OptionalCookie{Name: c.Name, Value: c.Value}
		if c.Domain != "" {
			cookie.Domain = pw.String(c.Domain)
		}
		if c.Path != "" {
			cookie.Path = pw.String(c.Path)
		}
		if c.Expires != 0 {
			cookie.Expires = pw.Float(c.Expires)
		}
		if c.HTTPOnly {
			cookie.HttpOnly = pw.Bool(true)
		}
		if c.Secure {
			cookie.Secure = pw.Bool(true)
		}
		converted = append(converted, cookie)
	}
	if err := t.context.AddCookies(converted); err != nil {
		return fmt.Errorf("cookie write failed: %w", err)
	}
	return nil
}

func (t *Transport) ClearCookies() error {
	if err := t.context.ClearCookies(); err != nil {
		return fmt.Errorf("cookie clear failed: %w", err)
	}
	return nil
}

func (t *Transport) AlertText() (string, bool, error) {
	t.dialogMu.Lock()
	defer t.dialogMu.Unlock()
	if t.pendingDialog == nil {
		return "", false, nil
	}
	return t.pendingDialog.Message(), true, nil
}

func (t *Transport) AcceptAlert() error {
	t.dialogMu.Lock()
	dialog := t.pendingDialog
	t.pendingDialog = nil
	t.dialogMu.Unlock()
	if dialog == nil {
		return nil
	}
	if err := dialog.Accept(); err != nil {
		return fmt.Errorf("dialog accept failed: %w", err)
	}
	return nil
}

func (t *Transport) DismissAlert() error {
	t.dialogMu.Lock()
	dialog := t.pendingDialog
	t.pendingDialog = nil
	t.dialogMu.Unlock()
	if dialog == nil {
		return nil
	}
	if err := dialog.Dismiss(); err != nil {
		return fmt.Errorf("dialog dismiss failed: %w", err)
	}
	return nil
}
