package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rishabhcli/browser-use/pkg/content"
	"github.com/rishabhcli/browser-use/pkg/logging"
)

// RetryConfig bounds the per-operation retry loop.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per operation.
	MaxAttempts int

	// BaseDelay is the first backoff delay; subsequent delays double.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff sleep.
	MaxDelay time.Duration
}

// DispatcherConfig tunes dispatch behavior.
type DispatcherConfig struct {
	Retry RetryConfig

	// CommandTimeout bounds one attempt of an interaction-class call.
	CommandTimeout time.Duration

	// PageLoadTimeout bounds one attempt of a navigation-class call.
	PageLoadTimeout time.Duration

	// ScriptTimeout bounds the auxiliary script round-trips that run outside
	// the retry loop (page metrics, page text, readyState probes).
	ScriptTimeout time.Duration

	// ReadyStateTimeout bounds the post-navigation readyState poll.
	ReadyStateTimeout time.Duration

	// MaxWait caps a single Wait intent.
	MaxWait time.Duration

	// AllowURL, when set, gates Navigate intents. A nil filter allows all.
	AllowURL func(url string) bool
}

// DefaultDispatcherConfig returns the dispatch defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   150 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
		CommandTimeout:    15 * time.Second,
		PageLoadTimeout:   60 * time.Second,
		ScriptTimeout:     30 * time.Second,
		ReadyStateTimeout: 12 * time.Second,
		MaxWait:           30 * time.Second,
	}
}

// Dispatcher executes abstract intents against the transport. At most one
// intent is in flight per dispatcher: the transport is stateful and not safe
// for concurrent use, so Dispatch serializes behind a mutex and sequential
// intents observe a total execution order.
type Dispatcher struct {
	mu sync.Mutex

	transport Transport
	cache     *StateCache
	health    *HealthMonitor
	dialogs   *DialogMonitor
	cfg       DispatcherConfig
	log       *logging.Logger
	events    *eventLog

	lastScreenshot []byte
}

// NewDispatcher wires a dispatcher from its collaborators, filling zero
// config fields from defaults.
func NewDispatcher(transport Transport, cache *StateCache, health *HealthMonitor, dialogs *DialogMonitor, cfg DispatcherConfig, log *logging.Logger) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = def.Retry.BaseDelay
	}
	if cfg.Retry.MaxDelay <= 0 {
		cfg.Retry.MaxDelay = def.Retry.MaxDelay
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = def.PageLoadTimeout
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = def.ScriptTimeout
	}
	if cfg.ReadyStateTimeout <= 0 {
		cfg.ReadyStateTimeout = def.ReadyStateTimeout
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	return &Dispatcher{
		transport: transport,
		cache:     cache,
		health:    health,
		dialogs:   dialogs,
		cfg:       cfg,
		log:       log,
		events:    newEventLog(20),
	}
}

// RecentEvents returns the labels of recently executed actions.
func (d *Dispatcher) RecentEvents() []string {
	return d.events.list()
}

// Dispatch executes one intent and returns its outcome. Concurrent callers
// serialize; there is no batching or coalescing across intents.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) (*Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Wait touches no transport state; skip the liveness probe so a host can
	// still pace itself against a dying session.
	if intent.Type != IntentWait {
		if err := d.health.Check(ctx); err != nil {
			d.log.Warnf("dispatch %s short-circuited: %v", intent.Type, err)
			return nil, err
		}
	}

	outcome, err := d.execute(ctx, intent)
	if err != nil {
		d.log.Errorf("dispatch %s failed: %v", intent.Type, err)
		return nil, err
	}
	return outcome, nil
}

func (d *Dispatcher) execute(ctx context.Context, intent Intent) (*Outcome, error) {
	switch intent.Type {
	case IntentNavigate:
		return d.navigate(ctx, intent)
	case IntentClickElement:
		return d.clickElement(ctx, intent)
	case IntentClickCoordinate:
		return d.clickCoordinate(ctx, intent)
	case IntentTypeText:
		return d.typeText(ctx, intent)
	case IntentScroll:
		return d.scroll(ctx, intent)
	case IntentScrollToText:
		return d.scrollToText(ctx, intent)
	case IntentScreenshot:
		return d.screenshot(ctx, intent)
	case IntentSwitchTab:
		return d.switchTab(ctx, intent)
	case IntentCloseTab:
		return d.closeTab(ctx, intent)
	case IntentGoBack:
		return d.history(ctx, intent, d.transport.Back, "back")
	case IntentGoForward:
		return d.history(ctx, intent, d.transport.Forward, "forward")
	case IntentRefresh:
		return d.history(ctx, intent, d.transport.Refresh, "refresh")
	case IntentWait:
		return d.wait(ctx, intent)
	case IntentSendKeys:
		return d.sendKeys(ctx, intent)
	case IntentGetDropdownOptions:
		return d.dropdownOptions(ctx, intent)
	case IntentSelectDropdownOption:
		return d.dropdownSelect(ctx, intent)
	case IntentUploadFile:
		return d.uploadFile(ctx, intent)
	case IntentRequestState:
		return d.requestState(ctx, intent)
	default:
		return nil, fmt.Errorf("unsupported intent type: %s", intent.Type)
	}
}

// runScriptBounded runs a script round-trip under the script timeout. Used
// for the auxiliary reads that execute outside the retry loop.
func (d *Dispatcher) runScriptBounded(ctx context.Context, operation, expr string, args ...any) (any, error) {
	return callWithTimeout(ctx, operation, d.cfg.ScriptTimeout, func() (any, error) {
		return d.transport.RunScript(expr, args...)
	})
}

// attemptTimeout returns the per-attempt bound for an action class.
func (d *Dispatcher) attemptTimeout(class ActionClass) time.Duration {
	if class == ClassNavigation {
		return d.cfg.PageLoadTimeout
	}
	return d.cfg.CommandTimeout
}

// maxUnchargedDialogResolutions caps how many dialog-stalled attempts one
// operation can replay for free. A page that re-raises a dialog before every
// attempt starts consuming the regular budget after this many resolutions.
const maxUnchargedDialogResolutions = 5

// withRetry runs fn under the action-class retry policy: bounded attempts,
// exponential backoff, bounded max delay. Attempts stalled by a dialog are
// not charged against the budget; the dispatcher resolves the dialog (or
// surfaces it under the block policy) and resumes the sequence.
func (d *Dispatcher) withRetry(ctx context.Context, operation string, class ActionClass, fn func(ctx context.Context) error) error {
	attempts := 0
	dialogResolutions := 0
	var lastErr error

	for attempts < d.cfg.Retry.MaxAttempts {
		err := callWithTimeoutErr(ctx, operation, d.attemptTimeout(class), func() error {
			return fn(ctx)
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Non-retryable classes surface immediately.
		var stale *StaleElementError
		var dead *SessionDeadError
		var denied *NavigationDeniedError
		var blocked *DialogBlockedError
		if errors.As(err, &stale) || errors.As(err, &dead) || errors.As(err, &denied) || errors.As(err, &blocked) {
			return err
		}

		// A dialog stalling the transport is not a real failure of the
		// attempt. Resolve it and retry without spending budget.
		handled, dialogErr := d.dialogs.CheckNow(ctx)
		if dialogErr != nil {
			var surfaced *DialogBlockedError
			if errors.As(dialogErr, &surfaced) {
				return dialogErr
			}
		}
		if handled {
			if dialogResolutions < maxUnchargedDialogResolutions {
				dialogResolutions++
				d.log.Infof("%s: dialog resolved mid-action, retrying without budget spend", operation)
				continue
			}
			d.log.Warnf("%s: dialog re-raised after %d free retries, charging the attempt", operation, dialogResolutions)
		}

		lastErr = err
		attempts++
		if attempts >= d.cfg.Retry.MaxAttempts {
			break
		}

		delay := d.cfg.Retry.BaseDelay << (attempts - 1)
		if delay > d.cfg.Retry.MaxDelay {
			delay = d.cfg.Retry.MaxDelay
		}
		d.log.Debugf("%s attempt %d failed (%v), backing off %s", operation, attempts, err, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &RetryExhaustedError{Operation: operation, Attempts: attempts, Cause: lastErr}
}

// resolveIndex resolves an element index against the current snapshot,
// refreshing the cache first if it is empty. A failed resolution is a
// staleness failure: the cache is invalidated, exactly one fresh extraction
// runs so the next state request is cheap, and the StaleElementError
// surfaces. The dispatcher never guesses a replacement element.
func (d *Dispatcher) resolveIndex(ctx context.Context, index int) (ElementRecord, error) {
	if _, err := d.cache.GetOrRefresh(ctx, false); err != nil {
		return ElementRecord{}, err
	}

	rec, err := d.cache.Resolve(index)
	if err == nil {
		return rec, nil
	}

	d.cache.Invalidate()
	if _, refreshErr := d.cache.GetOrRefresh(ctx, true); refreshErr != nil {
		d.log.Warnf("re-extraction after stale index %d failed: %v", index, refreshErr)
	}
	return ElementRecord{}, err
}

// elementPoint brings the element into view and returns the point to act on,
// preferring the fresh post-scroll rect over the cached one.
func (d *Dispatcher) elementPoint(rec ElementRecord) (Point, error) {
	raw, err := d.transport.RunScript(scrollIntoViewScript, rec.CSSSelector, rec.XPath)
	if err == nil {
		var located struct {
			OK   bool    `json:"ok"`
			Rect DOMRect `json:"rect"`
		}
		if decodeErr := decodeScriptResult(raw, &located); decodeErr == nil && located.OK && located.Rect.Area() > 0 {
			x, y := located.Rect.Center()
			return Point{X: x, Y: y}, nil
		}
	}

	if rec.BoundingRect.Area() <= 0 {
		return Point{}, &StaleElementError{Index: rec.Index, SnapshotID: "current"}
	}
	x, y := rec.BoundingRect.Center()
	return Point{X: x, Y: y}, nil
}

func (d *Dispatcher) navigate(ctx context.Context, intent Intent) (*Outcome, error) {
	if d.cfg.AllowURL != nil && !d.cfg.AllowURL(intent.URL) {
		return nil, &NavigationDeniedError{URL: intent.URL}
	}

	err := d.withRetry(ctx, "navigate", ClassNavigation, func(ctx context.Context) error {
		if intent.NewTab {
			if _, err := d.transport.NewTab(intent.URL); err != nil {
				return err
			}
		} else if err := d.transport.Navigate(intent.URL); err != nil {
			return err
		}
		d.waitForReady(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d.afterNavigation(ctx, intent, "navigate:"+intent.URL)
}

// afterNavigation runs the shared tail of every navigation-class action:
// the delayed-dialog sweep, cache invalidation, and event recording.
func (d *Dispatcher) afterNavigation(ctx context.Context, intent Intent, label string) (*Outcome, error) {
	if _, err := d.dialogs.SweepAfterNavigation(ctx); err != nil {
		var blocked *DialogBlockedError
		if errors.As(err, &blocked) {
			return nil, err
		}
		d.log.Warnf("post-navigation dialog sweep failed: %v", err)
	}
	d.cache.Invalidate()
	d.events.add(label)
	return &Outcome{Intent: intent.Type}, nil
}

// waitForReady polls document.readyState until complete or timeout. Slow
// pages are not an error; the caller proceeds with whatever loaded.
func (d *Dispatcher) waitForReady(ctx context.Context) {
	deadline := time.Now().Add(d.cfg.ReadyStateTimeout)
	for time.Now().Before(deadline) {
		state, err := d.runScriptBounded(ctx, "ready_state", readyStateScript)
		if err == nil {
			if s, ok := state.(string); ok && s == "complete" {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (d *Dispatcher) clickElement(ctx context.Context, intent Intent) (*Outcome, error) {
	rec, err := d.resolveIndex(ctx, intent.Index)
	if err != nil {
		return nil, err
	}

	var clicked Point
	err = d.withRetry(ctx, "click_element", ClassInteraction, func(ctx context.Context) error {
		point, err := d.elementPoint(rec)
		if err != nil {
			return err
		}

		// An id-backed selector survives layout shifts better than a
		// coordinate, so prefer it when the element has one.
		if _, hasID := rec.Attributes["id"]; hasID && rec.CSSSelector != "" {
			if err := d.transport.ClickSelector(Locator{Strategy: LocatorCSS, Value: rec.CSSSelector}); err != nil {
				return err
			}
		} else if err := d.transport.ClickAt(point.X, point.Y); err != nil {
			return err
		}

		clicked = point
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := d.dialogs.CheckNow(ctx); err != nil {
		var blocked *DialogBlockedError
		if errors.As(err, &blocked) {
			return nil, err
		}
	}
	d.cache.Invalidate()
	d.events.add(fmt.Sprintf("click:%d", intent.Index))
	return &Outcome{Intent: intent.Type, ClickedAt: &clicked}, nil
}

func (d *Dispatcher) clickCoordinate(ctx context.Context, intent Intent) (*Outcome, error) {
	err := d.withRetry(ctx, "click_coordinate", ClassInteraction, func(ctx context.Context) error {
		return d.transport.ClickAt(intent.X, intent.Y)
	})
	if err != nil {
		return nil, err
	}

	_, _ = d.dialogs.CheckNow(ctx)
	d.cache.Invalidate()
	d.events.add(fmt.Sprintf("click@%.0f,%.0f", intent.X, intent.Y))
	return &Outcome{Intent: intent.Type, ClickedAt: &Point{X: intent.X, Y: intent.Y}}, nil
}

func (d *Dispatcher) typeText(ctx context.Context, intent Intent) (*Outcome, error) {
	rec, err := d.resolveIndex(ctx, intent.Index)
	if err != nil {
		return nil, err
	}

	var clicked Point
	var typedValue string
	err = d.withRetry(ctx, "type_text", ClassInteraction, func(ctx context.Context) error {
		point, err := d.elementPoint(rec)
		if err != nil {
			return err
		}
		clicked = point

		if loc := DeriveLocator(rec); !loc.IsZero() {
			if err := d.transport.TypeInto(loc, intent.Text, true); err != nil {
				return err
			}
		} else {
			// No locator at all: focus by coordinate, clear the focused
			// element in-page, then type the literal characters. Never the
			// key-chord path; the text is data, not key names.
			if err := d.transport.ClickAt(point.X, point.Y); err != nil {
				return err
			}
			if _, err := d.transport.RunScript(clearActiveElementScript); err != nil {
				return err
			}
			if err := d.transport.TypeRaw(intent.Text); err != nil {
				return err
			}
		}

		if raw, err := d.transport.RunScript(readActiveValueScript); err == nil {
			if s, ok := raw.(string); ok {
				typedValue = s
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_, _ = d.dialogs.CheckNow(ctx)
	d.cache.Invalidate()
	d.events.add(fmt.Sprintf("type:%d", intent.Index))
	return &Outcome{Intent: intent.Type, ClickedAt: &clicked, TypedValue: typedValue}, nil
}

func (d *Dispatcher) scroll(ctx context.Context, intent Intent) (*Outcome, error) {
	dx, dy := scrollDelta(intent.Direction, intent.Pixels)

	var rec ElementRecord
	if intent.Index != 0 {
		resolved, err := d.resolveIndex(ctx, intent.Index)
		if err != nil {
			return nil, err
		}
		rec = resolved
	}

	err := d.withRetry(ctx, "scroll", ClassInteraction, func(ctx context.Context) error {
		if intent.Index == 0 {
			_, err := d.transport.RunScript(scrollWindowScript, dx, dy, string(intent.Direction))
			return err
		}

		raw, err := d.transport.RunScript(scrollElementScript, rec.CSSSelector, rec.XPath, dx, dy, string(intent.Direction))
		if err != nil {
			return err
		}
		if ok, _ := raw.(bool); !ok {
			return fmt.Errorf("scroll target %d not found in page", intent.Index)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.cache.Invalidate()
	d.events.add(fmt.Sprintf("scroll:%s:%d", intent.Direction, intent.Pixels))
	return &Outcome{Intent: intent.Type}, nil
}

func scrollDelta(direction ScrollDirection, pixels int) (int, int) {
	if pixels < 0 {
		pixels = -pixels
	}
	switch direction {
	case ScrollUp:
		return 0, -pixels
	case ScrollLeft:
		return -pixels, 0
	case ScrollRight:
		return pixels, 0
	default:
		return 0, pixels
	}
}

func (d *Dispatcher) scrollToText(ctx context.Context, intent Intent) (*Outcome, error) {
	err := d.withRetry(ctx, "scroll_to_text", ClassInteraction, func(ctx context.Context) error {
		raw, err := d.transport.RunScript(scrollToTextScript, intent.Text)
		if err != nil {
			return err
		}
		if found, _ := raw.(bool); !found {
			return fmt.Errorf("text %q not found on page", intent.Text)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.cache.Invalidate()
	d.events.add("scroll_to_text:" + truncate(intent.Text, 50))
	return &Outcome{Intent: intent.Type}, nil
}

func (d *Dispatcher) screenshot(ctx context.Context, intent Intent) (*Outcome, error) {
	var shot []byte
	err := d.withRetry(ctx, "screenshot", ClassInteraction, func(ctx context.Context) error {
		data, err := d.transport.Screenshot()
		if err != nil {
			return err
		}
		shot = data
		return nil
	})
	if err != nil {
		// A stale image beats no image for a host that mostly needs to see
		// roughly where it is.
		if d.lastScreenshot != nil {
			d.log.Warnf("screenshot failed, serving cached capture: %v", err)
			d.events.add("screenshot:fallback-cached")
			return &Outcome{Intent: intent.Type, Screenshot: d.lastScreenshot}, nil
		}
		return nil, err
	}

	d.lastScreenshot = shot
	return &Outcome{Intent: intent.Type, Screenshot: shot}, nil
}

func (d *Dispatcher) switchTab(ctx context.Context, intent Intent) (*Outcome, error) {
	var active TabInfo
	err := d.withRetry(ctx, "switch_tab", ClassNavigation, func(ctx context.Context) error {
		tab, err := d.transport.SwitchTab(intent.TabIndex)
		if err != nil {
			return err
		}
		active = tab
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome, err := d.afterNavigation(ctx, intent, fmt.Sprintf("switch_tab:%d", intent.TabIndex))
	if err != nil {
		return nil, err
	}
	outcome.ActiveTab = &active
	return outcome, nil
}

func (d *Dispatcher) closeTab(ctx context.Context, intent Intent) (*Outcome, error) {
	var active *TabInfo
	err := d.withRetry(ctx, "close_tab", ClassNavigation, func(ctx context.Context) error {
		tab, err := d.transport.CloseTab()
		if err != nil {
			return err
		}
		active = tab
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome, err := d.afterNavigation(ctx, intent, "close_tab")
	if err != nil {
		return nil, err
	}
	outcome.ActiveTab = active
	return outcome, nil
}

func (d *Dispatcher) history(ctx context.Context, intent Intent, op func() error, label string) (*Outcome, error) {
	err := d.withRetry(ctx, label, ClassNavigation, func(ctx context.Context) error {
		if err := op(); err != nil {
			return err
		}
		d.waitForReady(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.afterNavigation(ctx, intent, label)
}

// wait sleeps cooperatively: a cancelled context ends the wait early and is
// reported to the caller.
func (d *Dispatcher) wait(ctx context.Context, intent Intent) (*Outcome, error) {
	duration := intent.Duration
	if duration < 0 {
		duration = 0
	}
	if duration > d.cfg.MaxWait {
		duration = d.cfg.MaxWait
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(duration):
	}
	d.events.add(fmt.Sprintf("wait:%s", duration))
	return &Outcome{Intent: intent.Type}, nil
}

func (d *Dispatcher) sendKeys(ctx context.Context, intent Intent) (*Outcome, error) {
	err := d.withRetry(ctx, "send_keys", ClassInteraction, func(ctx context.Context) error {
		return d.transport.SendKeys(intent.Text)
	})
	if err != nil {
		return nil, err
	}

	_, _ = d.dialogs.CheckNow(ctx)
	d.cache.Invalidate()
	d.events.add("send_keys:" + intent.Text)
	return &Outcome{Intent: intent.Type}, nil
}

func (d *Dispatcher) dropdownOptions(ctx context.Context, intent Intent) (*Outcome, error) {
	rec, err := d.resolveIndex(ctx, intent.Index)
	if err != nil {
		return nil, err
	}

	var dropdownType string
	var options []DropdownOption
	err = d.withRetry(ctx, "get_dropdown_options", ClassInteraction, func(ctx context.Context) error {
		raw, err := d.transport.RunScript(dropdownOptionsScript, rec.CSSSelector, rec.XPath)
		if err != nil {
			return err
		}
		var payload struct {
			Type    string           `json:"type"`
			Options []DropdownOption `json:"options"`
			Error   string           `json:"error"`
		}
		if err := decodeScriptResult(raw, &payload); err != nil {
			return fmt.Errorf("invalid dropdown payload: %w", err)
		}
		if payload.Error != "" {
			return fmt.Errorf("dropdown read failed: %s", payload.Error)
		}
		dropdownType = payload.Type
		options = payload.Options
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.events.add(fmt.Sprintf("dropdown_options:%d", intent.Index))
	return &Outcome{Intent: intent.Type, DropdownType: dropdownType, Options: options}, nil
}

func (d *Dispatcher) dropdownSelect(ctx context.Context, intent Intent) (*Outcome, error) {
	rec, err := d.resolveIndex(ctx, intent.Index)
	if err != nil {
		return nil, err
	}

	var message string
	err = d.withRetry(ctx, "select_dropdown_option", ClassInteraction, func(ctx context.Context) error {
		raw, err := d.transport.RunScript(dropdownSelectScript, rec.CSSSelector, rec.XPath, intent.Text)
		if err != nil {
			return err
		}
		var payload struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := decodeScriptResult(raw, &payload); err != nil {
			return fmt.Errorf("invalid dropdown payload: %w", err)
		}
		if !payload.Success {
			return fmt.Errorf("dropdown select failed: %s", payload.Error)
		}
		message = payload.Message
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.cache.Invalidate()
	d.events.add(fmt.Sprintf("dropdown_select:%d:%s", intent.Index, truncate(intent.Text, 40)))
	return &Outcome{Intent: intent.Type, Message: message}, nil
}

func (d *Dispatcher) uploadFile(ctx context.Context, intent Intent) (*Outcome, error) {
	rec, err := d.resolveIndex(ctx, intent.Index)
	if err != nil {
		return nil, err
	}

	loc := DeriveLocator(rec)
	if loc.IsZero() {
		return nil, fmt.Errorf("element %d has no selector usable for upload", intent.Index)
	}

	err = d.withRetry(ctx, "upload_file", ClassInteraction, func(ctx context.Context) error {
		return d.transport.UploadFile(loc, intent.FilePath)
	})
	if err != nil {
		return nil, err
	}

	d.cache.Invalidate()
	d.events.add("upload:" + intent.FilePath)
	return &Outcome{Intent: intent.Type}, nil
}

// requestState performs a full extraction pass plus screenshot and page
// metadata, establishing a fresh cache. Partial failures of the auxiliary
// reads (tabs, screenshot, metrics, text) degrade into BrowserState.Errors
// instead of failing the whole request; only a failed extraction is fatal.
func (d *Dispatcher) requestState(ctx context.Context, intent Intent) (*Outcome, error) {
	state := &BrowserState{}

	var snap *ExtractionSnapshot
	err := d.withRetry(ctx, "request_state:extract", ClassInteraction, func(ctx context.Context) error {
		fresh, err := d.cache.GetOrRefresh(ctx, true)
		if err != nil {
			return err
		}
		snap = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	state.Snapshot = snap
	state.URL = snap.Page.URL
	state.Title = snap.Title

	if tabs, err := d.transport.ListTabs(); err != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("tab listing failed: %v", err))
	} else {
		state.Tabs = tabs
	}

	if raw, err := d.runScriptBounded(ctx, "page_info", pageInfoScript); err != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("page metrics failed: %v", err))
	} else if decodeErr := decodePageInfo(raw, &state.PageInfo); decodeErr != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("page metrics malformed: %v", decodeErr))
	}

	if raw, err := d.runScriptBounded(ctx, "page_html", pageHTMLScript); err != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("page text read failed: %v", err))
	} else if html, ok := raw.(string); ok && html != "" {
		text, textErr := content.ExtractText(html, content.DefaultMaxTextLength)
		if textErr != nil {
			state.Errors = append(state.Errors, fmt.Sprintf("page text extraction failed: %v", textErr))
		} else {
			state.Text = text
		}
	}

	if shot, err := d.transport.Screenshot(); err != nil {
		state.Errors = append(state.Errors, fmt.Sprintf("screenshot failed: %v", err))
		if d.lastScreenshot != nil {
			state.Screenshot = d.lastScreenshot
			d.events.add("screenshot:fallback-cached")
		}
	} else {
		state.Screenshot = shot
		d.lastScreenshot = shot
	}

	state.RecentEvents = d.events.list()
	d.events.add("state:" + state.URL)
	return &Outcome{Intent: intent.Type, State: state}, nil
}

// decodeScriptResult normalizes a loosely typed script return value into a
// typed struct via a JSON round-trip.
func decodeScriptResult(raw any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func decodePageInfo(raw any, out *PageInfo) error {
	var payload struct {
		ViewportWidth  int `json:"viewport_width"`
		ViewportHeight int `json:"viewport_height"`
		PageWidth      int `json:"page_width"`
		PageHeight     int `json:"page_height"`
		ScrollX        int `json:"scroll_x"`
		ScrollY        int `json:"scroll_y"`
		PixelsAbove    int `json:"pixels_above"`
		PixelsBelow    int `json:"pixels_below"`
	}
	if err := decodeScriptResult(raw, &payload); err != nil {
		return err
	}
	*out = PageInfo(payload)
	return nil
}
