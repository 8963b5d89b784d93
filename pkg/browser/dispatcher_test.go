package browser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishabhcli/browser-use/pkg/logging"
)

func newTestDispatcher(transport *fakeTransport, cfg DispatcherConfig) *Dispatcher {
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = time.Millisecond
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 2 * time.Millisecond
	}
	cache := NewStateCache(NewExtractor(ExtractorConfig{}), transport)
	health := NewHealthMonitor(transport, time.Second)
	dialogs := NewDialogMonitor(transport, DialogMonitorConfig{
		SweepMaxWait:  10 * time.Millisecond,
		SweepInterval: time.Millisecond,
	})
	return NewDispatcher(transport, cache, health, dialogs, cfg, logging.Nop())
}

func TestClickElementIssuesExactlyOneClick(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	outcome, err := d.Dispatch(context.Background(), ClickElement(2))
	require.NoError(t, err)
	require.NotNil(t, outcome.ClickedAt)

	// The fake elements carry ids, so the click goes through the selector
	// path, exactly once.
	assert.Equal(t, 1, transport.countCalls("click_selector:#btn-2"))
	assert.Equal(t, 0, transport.countCalls("click_at"))
}

func TestClickElementInvalidatesCache(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), ClickElement(1))
	require.NoError(t, err)
	assert.Nil(t, d.cache.Current(), "an action that can change the page must drop the snapshot")
}

func TestStaleIndexRefreshesOnceAndSurfaces(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), ClickElement(9))

	var stale *StaleElementError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, 9, stale.Index)

	// Initial pass plus exactly one re-extraction, never a guessed click.
	assert.Equal(t, 2, transport.countCalls("script:extract"))
	assert.Equal(t, 0, transport.countCalls("click_selector"))
	assert.Equal(t, 0, transport.countCalls("click_at"))
	assert.NotNil(t, d.cache.Current(), "the cache holds a fresh snapshot for the next state request")
}

func TestDeadSessionShortCircuitsBeforeAnyAction(t *testing.T) {
	transport := newFakeTransport()
	transport.alive = false
	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), Navigate("https://example.com/next"))

	var dead *SessionDeadError
	require.ErrorAs(t, err, &dead)
	assert.Equal(t, 0, transport.countCalls("navigate"))
	assert.Equal(t, 1, transport.countCalls("script:health"), "the probe runs once, no retries")
}

func TestWaitSkipsHealthProbe(t *testing.T) {
	transport := newFakeTransport()
	transport.alive = false
	d := newTestDispatcher(transport, DispatcherConfig{MaxWait: 5 * time.Millisecond})

	_, err := d.Dispatch(context.Background(), Wait(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 0, transport.countCalls("script:health"))
}

func TestWaitHonorsCancellation(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := d.Dispatch(ctx, Wait(5*time.Second))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitCapsDuration(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{MaxWait: 5 * time.Millisecond})

	start := time.Now()
	_, err := d.Dispatch(context.Background(), Wait(10*time.Second))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNavigateDeniedByAllowlist(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{
		AllowURL: func(url string) bool { return url == "https://allowed.example.com" },
	})

	_, err := d.Dispatch(context.Background(), Navigate("https://evil.example.org"))

	var denied *NavigationDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "https://evil.example.org", denied.URL)
	assert.Equal(t, 0, transport.countCalls("navigate"))

	_, err = d.Dispatch(context.Background(), Navigate("https://allowed.example.com"))
	require.NoError(t, err)
	assert.Equal(t, 1, transport.countCalls("navigate:https://allowed.example.com"))
}

func TestNavigateInvalidatesCache(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), RequestState())
	require.NoError(t, err)
	extractions := transport.countCalls("script:extract")

	_, err = d.Dispatch(context.Background(), Navigate("https://example.com/page2"))
	require.NoError(t, err)
	assert.Nil(t, d.cache.Current())

	_, err = d.Dispatch(context.Background(), RequestState())
	require.NoError(t, err)
	assert.Equal(t, extractions+1, transport.countCalls("script:extract"),
		"state after navigation must come from a fresh pass")
}

func TestRetryExhaustionWrapsLastError(t *testing.T) {
	transport := newFakeTransport()
	navErr := errors.New("net::ERR_CONNECTION_REFUSED")
	transport.navigateFn = func(url string) error { return navErr }
	d := newTestDispatcher(transport, DispatcherConfig{
		Retry: RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	})

	_, err := d.Dispatch(context.Background(), Navigate("https://example.com"))

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, navErr)
	assert.Equal(t, 3, transport.countCalls("navigate:"))
}

func TestDialogResolvedMidActionDoesNotSpendBudget(t *testing.T) {
	transport := newFakeTransport()
	transport.alertQueue = []string{"Are you sure?"}

	failures := 0
	transport.clickAtFn = func(x, y float64) error {
		if failures == 0 {
			failures++
			return errors.New("click intercepted by modal dialog")
		}
		return nil
	}

	// A single-attempt budget: the action still succeeds because the
	// dialog-stalled attempt is not charged.
	d := newTestDispatcher(transport, DispatcherConfig{
		Retry: RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	outcome, err := d.Dispatch(context.Background(), ClickCoordinate(50, 60))
	require.NoError(t, err)
	require.NotNil(t, outcome.ClickedAt)
	assert.Equal(t, []string{"Are you sure?"}, transport.acceptedAlerts)
	assert.Equal(t, 2, transport.countCalls("click_at:50,60"))
}

func TestBlockPolicySurfacesDialog(t *testing.T) {
	transport := newFakeTransport()
	transport.alertQueue = []string{"Leave site?"}
	transport.clickAtFn = func(x, y float64) error {
		return errors.New("click intercepted by modal dialog")
	}

	cache := NewStateCache(NewExtractor(ExtractorConfig{}), transport)
	health := NewHealthMonitor(transport, time.Second)
	dialogs := NewDialogMonitor(transport, DialogMonitorConfig{Policy: DialogBlock})
	d := NewDispatcher(transport, cache, health, dialogs, DispatcherConfig{
		Retry: RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, logging.Nop())

	_, err := d.Dispatch(context.Background(), ClickCoordinate(10, 10))

	var blocked *DialogBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "Leave site?", blocked.Message)
	assert.Empty(t, transport.acceptedAlerts, "block policy never resolves the dialog")
}

func TestDialogDuringNavigationResolvedBeforeOutcome(t *testing.T) {
	transport := newFakeTransport()
	transport.navigateFn = func(url string) error {
		// The page raises a leave confirmation as navigation starts.
		transport.alertQueue = append(transport.alertQueue, "Changes you made may not be saved.")
		return nil
	}
	d := newTestDispatcher(transport, DispatcherConfig{})

	outcome, err := d.Dispatch(context.Background(), Navigate("https://example.com/away"))
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, []string{"Changes you made may not be saved."}, transport.acceptedAlerts,
		"the post-navigation sweep resolves the delayed dialog before the outcome returns")
}

func TestTypeTextPrefersStableLocator(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	outcome, err := d.Dispatch(context.Background(), TypeText(1, "hello world"))
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, 1, transport.countCalls("type_into:#btn-1:hello world"))
	assert.Equal(t, 0, transport.countCalls("send_keys"), "id-backed elements skip the keyboard path")
	assert.Nil(t, d.cache.Current())
}

func TestTypeTextWithoutIDUsesDerivedLocator(t *testing.T) {
	transport := newFakeTransport()
	payload := makeExtractionPayload("https://example.com", 1)
	el := payload["elements"].([]any)[0].(map[string]any)
	el["attributes"] = map[string]any{"name": "q"}
	el["css_selector"] = "input.search"
	transport.extraction = payload

	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), TypeText(1, "hello world"))
	require.NoError(t, err)

	assert.Equal(t, 1, transport.countCalls("type_into:input.search:hello world"))
	assert.Equal(t, 0, transport.countCalls("send_keys"), "literal text never goes through the key-chord path")
	assert.Equal(t, 0, transport.countCalls("type_raw"))
}

func TestTypeTextWithoutAnyLocatorTypesLiteralText(t *testing.T) {
	transport := newFakeTransport()
	payload := makeExtractionPayload("https://example.com", 1)
	el := payload["elements"].([]any)[0].(map[string]any)
	el["attributes"] = map[string]any{}
	el["css_selector"] = ""
	el["xpath"] = ""
	transport.extraction = payload

	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), TypeText(1, "hello+world again"))
	require.NoError(t, err)

	assert.Equal(t, 1, transport.countCalls("click_at"))
	assert.Equal(t, 1, transport.countCalls("type_raw:hello+world again"),
		"spaces and plus signs reach the page as characters")
	assert.Equal(t, 0, transport.countCalls("send_keys"))
}

func TestElementScrollResolvesThroughEmptyCache(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), ScrollElement(2, ScrollDown, 100))
	require.NoError(t, err)
	assert.Equal(t, 1, transport.countCalls("script:extract"),
		"an empty cache is refreshed before resolving the scroll target")
}

func TestElementScrollStaleIndexRefreshesOnceAndSurfaces(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), ScrollElement(9, ScrollDown, 100))

	var stale *StaleElementError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, 2, transport.countCalls("script:extract"))
	assert.Equal(t, 0, transport.countCalls("script:scroll"))
}

func TestRepeatedDialogsDoNotLoopForever(t *testing.T) {
	transport := newFakeTransport()
	transport.clickAtFn = func(x, y float64) error {
		// The page re-raises a dialog before every attempt.
		transport.alertQueue = []string{"confirm again"}
		return errors.New("click intercepted by modal dialog")
	}
	d := newTestDispatcher(transport, DispatcherConfig{
		Retry: RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	_, err := d.Dispatch(context.Background(), ClickCoordinate(5, 5))

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.LessOrEqual(t, transport.countCalls("click_at:5,5"), maxUnchargedDialogResolutions+2,
		"uncharged dialog retries are bounded")
}

func TestRequestStateBoundsAuxiliaryScripts(t *testing.T) {
	transport := newFakeTransport()
	slow := &slowPageInfoTransport{fakeTransport: transport}

	cache := NewStateCache(NewExtractor(ExtractorConfig{}), slow)
	health := NewHealthMonitor(slow, time.Second)
	dialogs := NewDialogMonitor(slow, DialogMonitorConfig{
		SweepMaxWait:  10 * time.Millisecond,
		SweepInterval: time.Millisecond,
	})
	d := NewDispatcher(slow, cache, health, dialogs, DispatcherConfig{
		ScriptTimeout: 5 * time.Millisecond,
	}, logging.Nop())

	start := time.Now()
	outcome, err := d.Dispatch(context.Background(), RequestState())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "a hung metrics script cannot stall the state request")
	assert.Contains(t, strings.Join(outcome.State.Errors, "\n"), "page metrics failed")
}

// slowPageInfoTransport hangs the page-metrics script while leaving the rest
// of the fake untouched.
type slowPageInfoTransport struct {
	*fakeTransport
}

func (s *slowPageInfoTransport) RunScript(expr string, args ...any) (any, error) {
	if expr == pageInfoScript {
		time.Sleep(200 * time.Millisecond)
	}
	return s.fakeTransport.RunScript(expr, args...)
}

func TestScreenshotFallsBackToCachedCapture(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{
		Retry: RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	first, err := d.Dispatch(context.Background(), Screenshot())
	require.NoError(t, err)
	require.Equal(t, []byte("png-bytes"), first.Screenshot)

	transport.screenshotErr = errors.New("capture failed")
	second, err := d.Dispatch(context.Background(), Screenshot())
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), second.Screenshot,
		"a stale capture is served when a fresh one cannot be taken")
}

func TestScreenshotFailsWithoutCachedCapture(t *testing.T) {
	transport := newFakeTransport()
	transport.screenshotErr = errors.New("capture failed")
	d := newTestDispatcher(transport, DispatcherConfig{
		Retry: RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	_, err := d.Dispatch(context.Background(), Screenshot())
	require.Error(t, err)
}

func TestRequestStateDegradesGracefully(t *testing.T) {
	transport := newFakeTransport()
	transport.screenshotErr = errors.New("capture failed")
	d := newTestDispatcher(transport, DispatcherConfig{
		Retry: RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	outcome, err := d.Dispatch(context.Background(), RequestState())
	require.NoError(t, err, "auxiliary read failures must not fail the state request")

	state := outcome.State
	require.NotNil(t, state)
	require.NotNil(t, state.Snapshot)
	assert.Len(t, state.Snapshot.Elements, 3)
	assert.Equal(t, "https://example.com", state.URL)
	assert.Len(t, state.Tabs, 1)
	assert.NotEmpty(t, state.Errors, "the failed screenshot is reported, not swallowed")
}

func TestRequestStateRecordsRecentEvents(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), ClickElement(1))
	require.NoError(t, err)
	outcome, err := d.Dispatch(context.Background(), RequestState())
	require.NoError(t, err)

	assert.Contains(t, outcome.State.RecentEvents, "click:1")
}

func TestScrollToTextFailsWhenAbsent(t *testing.T) {
	transport := newFakeTransport()
	transport.scriptFn = func(expr string, args []any) (any, error) {
		return false, nil
	}
	d := newTestDispatcher(transport, DispatcherConfig{
		Retry: RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	_, err := d.Dispatch(context.Background(), ScrollToText("nowhere to be found"))

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
}

func TestUploadRequiresLocator(t *testing.T) {
	transport := newFakeTransport()
	payload := makeExtractionPayload("https://example.com", 1)
	el := payload["elements"].([]any)[0].(map[string]any)
	el["css_selector"] = ""
	el["xpath"] = ""
	transport.extraction = payload

	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), UploadFile(1, "/tmp/doc.pdf"))
	require.Error(t, err)
	assert.Equal(t, 0, transport.countCalls("upload"))
}

func TestHistoryActionsInvalidateCache(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), RequestState())
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), GoBack())
	require.NoError(t, err)
	assert.Equal(t, 1, transport.countCalls("back"))
	assert.Nil(t, d.cache.Current())
}

func TestSwitchTabReportsActiveTab(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	outcome, err := d.Dispatch(context.Background(), SwitchTab(0))
	require.NoError(t, err)
	require.NotNil(t, outcome.ActiveTab)
	assert.Equal(t, "tab-0", outcome.ActiveTab.Handle)
}

func TestUnknownIntentRejected(t *testing.T) {
	transport := newFakeTransport()
	d := newTestDispatcher(transport, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), Intent{Type: IntentType("teleport")})
	require.Error(t, err)
}
