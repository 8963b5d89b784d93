package browser

// LocatorStrategy selects how a selector string is interpreted by the
// transport.
type LocatorStrategy string

const (
	LocatorCSS   LocatorStrategy = "css"
	LocatorXPath LocatorStrategy = "xpath"
)

// Locator addresses an element for transport-level selector operations.
type Locator struct {
	Strategy LocatorStrategy
	Value    string
}

// IsZero reports whether no selector could be derived and coordinate fallback
// must be used instead.
func (l Locator) IsZero() bool { return l.Value == "" }

// DeriveLocator picks the most stable transport locator for a record:
// the extractor's CSS selector when it is id-based, then any CSS selector,
// then the XPath. Callers fall back to the rect center when nothing is
// available.
func DeriveLocator(rec ElementRecord) Locator {
	if rec.CSSSelector != "" {
		return Locator{Strategy: LocatorCSS, Value: rec.CSSSelector}
	}
	if rec.XPath != "" {
		return Locator{Strategy: LocatorXPath, Value: rec.XPath}
	}
	return Locator{}
}

// Transport is the set of low-level browser-control primitives the core
// executes against. Each call is synchronous with its own internal timeout,
// individually reliable-ish, non-transactional, and never retried by the
// implementation itself; retry policy lives in the dispatcher.
//
// Implementations are not safe for concurrent use. The dispatcher serializes
// all access.
type Transport interface {
	// Navigation
	Navigate(url string) error
	NewTab(url string) (TabInfo, error)
	Back() error
	Forward() error
	Refresh() error

	// Interaction. TypeRaw types literal characters into the focused element;
	// SendKeys interprets its argument as named keys and chords.
	ClickAt(x, y float64) error
	ClickSelector(loc Locator) error
	TypeInto(loc Locator, text string, clear bool) error
	TypeRaw(text string) error
	UploadFile(loc Locator, path string) error
	SendKeys(combo string) error

	// Scripting. Return values are decoded into plain Go values
	// (map[string]any, []any, float64, string, bool, nil).
	RunScript(expr string, args ...any) (any, error)

	// Observation
	Screenshot() ([]byte, error)
	URL() (string, error)
	Title() (string, error)

	// Tabs
	ListTabs() ([]TabInfo, error)
	SwitchTab(index int) (TabInfo, error)
	CloseTab() (*TabInfo, error)

	// Cookies
	GetCookies() ([]Cookie, error)
	SetCookies(cookies []Cookie) error
	ClearCookies() error

	// Dialogs. AlertText returns ok=false when no dialog is present.
	AlertText() (text string, ok bool, err error)
	AcceptAlert() error
	DismissAlert() error
}
