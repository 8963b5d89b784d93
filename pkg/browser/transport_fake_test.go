package browser

import (
	"errors"
	"fmt"
)

// fakeTransport is the in-memory Transport used across the package tests. It
// records every call and lets individual tests override behavior through
// function hooks and canned values.
type fakeTransport struct {
	calls []string

	alive      bool
	extraction any

	navigateFn func(url string) error
	clickAtFn  func(x, y float64) error
	scriptFn   func(expr string, args []any) (any, error)

	alertQueue     []string
	acceptedAlerts []string
	dismissedAlert []string

	screenshotData []byte
	screenshotErr  error

	tabs    []TabInfo
	cookies []Cookie
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		alive:          true,
		extraction:     makeExtractionPayload("https://example.com", 3),
		screenshotData: []byte("png-bytes"),
		tabs:           []TabInfo{{Index: 0, Handle: "tab-0", URL: "https://example.com", Title: "Example"}},
	}
}

// makeExtractionPayload builds a minimal valid script payload with n visible
// elements.
func makeExtractionPayload(url string, n int) map[string]any {
	elements := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		elements = append(elements, map[string]any{
			"index":        i,
			"tag_name":     "button",
			"text_content": fmt.Sprintf("Button %d", i),
			"attributes":   map[string]any{"id": fmt.Sprintf("btn-%d", i)},
			"bounding_rect": map[string]any{
				"x": float64(10 * i), "y": float64(20 * i), "width": 100.0, "height": 30.0,
			},
			"is_visible":    true,
			"is_scrollable": false,
			"xpath":         fmt.Sprintf(`//*[@id="btn-%d"]`, i),
			"css_selector":  fmt.Sprintf("#btn-%d", i),
		})
	}
	return map[string]any{
		"url":             url,
		"title":           "Example",
		"viewport_width":  1280,
		"viewport_height": 720,
		"elements":        elements,
	}
}

func (f *fakeTransport) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeTransport) countCalls(prefix string) int {
	n := 0
	for _, call := range f.calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeTransport) Navigate(url string) error {
	f.record("navigate:" + url)
	if f.navigateFn != nil {
		return f.navigateFn(url)
	}
	return nil
}

func (f *fakeTransport) NewTab(url string) (TabInfo, error) {
	f.record("new_tab:" + url)
	tab := TabInfo{Index: len(f.tabs), Handle: fmt.Sprintf("tab-%d", len(f.tabs)), URL: url}
	f.tabs = append(f.tabs, tab)
	return tab, nil
}

func (f *fakeTransport) Back() error    { f.record("back"); return nil }
func (f *fakeTransport) Forward() error { f.record("forward"); return nil }
func (f *fakeTransport) Refresh() error { f.record("refresh"); return nil }

func (f *fakeTransport) ClickAt(x, y float64) error {
	f.record(fmt.Sprintf("click_at:%.0f,%.0f", x, y))
	if f.clickAtFn != nil {
		return f.clickAtFn(x, y)
	}
	return nil
}

func (f *fakeTransport) ClickSelector(loc Locator) error {
	f.record("click_selector:" + loc.Value)
	return nil
}

func (f *fakeTransport) TypeInto(loc Locator, text string, clear bool) error {
	f.record(fmt.Sprintf("type_into:%s:%s", loc.Value, text))
	return nil
}

func (f *fakeTransport) TypeRaw(text string) error {
	f.record("type_raw:" + text)
	return nil
}

func (f *fakeTransport) UploadFile(loc Locator, path string) error {
	f.record(fmt.Sprintf("upload:%s:%s", loc.Value, path))
	return nil
}

func (f *fakeTransport) SendKeys(combo string) error {
	f.record("send_keys:" + combo)
	return nil
}

func (f *fakeTransport) RunScript(expr string, args ...any) (any, error) {
	switch expr {
	case healthScript:
		f.record("script:health")
		if !f.alive {
			return nil, errors.New("session gone")
		}
		return 1, nil
	case readyStateScript:
		f.record("script:ready_state")
		return "complete", nil
	case extractionScript:
		f.record("script:extract")
		if f.scriptFn != nil {
			return f.scriptFn(expr, args)
		}
		return f.extraction, nil
	case scrollWindowScript, scrollElementScript:
		f.record("script:scroll")
		return true, nil
	case scrollIntoViewScript:
		f.record("script:scroll_into_view")
		return map[string]any{
			"ok":   true,
			"rect": map[string]any{"x": 10.0, "y": 20.0, "width": 100.0, "height": 30.0},
		}, nil
	default:
		f.record("script:other")
		if f.scriptFn != nil {
			return f.scriptFn(expr, args)
		}
		return nil, nil
	}
}

func (f *fakeTransport) Screenshot() ([]byte, error) {
	f.record("screenshot")
	if f.screenshotErr != nil {
		return nil, f.screenshotErr
	}
	return f.screenshotData, nil
}

func (f *fakeTransport) URL() (string, error)   { f.record("url"); return "https://example.com", nil }
func (f *fakeTransport) Title() (string, error) { f.record("title"); return "Example", nil }

func (f *fakeTransport) ListTabs() ([]TabInfo, error) {
	f.record("list_tabs")
	return f.tabs, nil
}

func (f *fakeTransport) SwitchTab(index int) (TabInfo, error) {
	f.record(fmt.Sprintf("switch_tab:%d", index))
	if index < 0 || index >= len(f.tabs) {
		return TabInfo{}, fmt.Errorf("tab index %d out of range", index)
	}
	return f.tabs[index], nil
}

func (f *fakeTransport) CloseTab() (*TabInfo, error) {
	f.record("close_tab")
	if len(f.tabs) <= 1 {
		return nil, nil
	}
	f.tabs = f.tabs[:len(f.tabs)-1]
	tab := f.tabs[len(f.tabs)-1]
	return &tab, nil
}

func (f *fakeTransport) GetCookies() ([]Cookie, error) {
	f.record("get_cookies")
	return f.cookies, nil
}

func (f *fakeTransport) SetCookies(cookies []Cookie) error {
	f.record("set_cookies")
	f.cookies = append(f.cookies, cookies...)
	return nil
}

func (f *fakeTransport) ClearCookies() error {
	f.record("clear_cookies")
	f.cookies = nil
	return nil
}

func (f *fakeTransport) AlertText() (string, bool, error) {
	if len(f.alertQueue) == 0 {
		return "", false, nil
	}
	return f.alertQueue[0], true, nil
}

func (f *fakeTransport) AcceptAlert() error {
	if len(f.alertQueue) == 0 {
		return nil
	}
	f.acceptedAlerts = append(f.acceptedAlerts, f.alertQueue[0])
	f.alertQueue = f.alertQueue[1:]
	return nil
}

func (f *fakeTransport) DismissAlert() error {
	if len(f.alertQueue) == 0 {
		return nil
	}
	f.dismissedAlert = append(f.dismissedAlert, f.alertQueue[0])
	f.alertQueue = f.alertQueue[1:]
	return nil
}
