package browser

import (
	"context"
	"sync"
	"time"
)

// DialogPolicy decides what happens to a detected native dialog.
type DialogPolicy string

const (
	// DialogAccept resolves dialogs by accepting them.
	DialogAccept DialogPolicy = "accept"
	// DialogDismiss resolves dialogs by dismissing them.
	DialogDismiss DialogPolicy = "dismiss"
	// DialogBlock leaves the dialog up and surfaces a DialogBlockedError.
	DialogBlock DialogPolicy = "block"
)

// DialogMonitorConfig tunes dialog detection. The transport offers no
// dialog-raised notification, so detection is a bounded-interval poll and its
// latency is a property of these values, not a guarantee of immediacy.
type DialogMonitorConfig struct {
	Policy DialogPolicy

	// PollInterval is the background watch cadence.
	PollInterval time.Duration

	// SweepMaxWait and SweepInterval bound the post-navigation poll for
	// delayed dialogs (onbeforeunload and friends), which the regular check
	// cannot reliably catch.
	SweepMaxWait  time.Duration
	SweepInterval time.Duration
}

// DefaultDialogMonitorConfig returns the dialog monitoring defaults.
func DefaultDialogMonitorConfig() DialogMonitorConfig {
	return DialogMonitorConfig{
		Policy:        DialogAccept,
		PollInterval:  500 * time.Millisecond,
		SweepMaxWait:  800 * time.Millisecond,
		SweepInterval: 150 * time.Millisecond,
	}
}

// DialogMonitor watches for native dialogs that stall transport calls and
// resolves them per policy. It runs both as a background poll and as an
// on-demand check after every dispatched action.
type DialogMonitor struct {
	transport Transport
	cfg       DialogMonitorConfig

	mu       sync.Mutex
	resolved []string
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewDialogMonitor creates a monitor, filling zero config fields from
// defaults.
func NewDialogMonitor(transport Transport, cfg DialogMonitorConfig) *DialogMonitor {
	def := DefaultDialogMonitorConfig()
	if cfg.Policy == "" {
		cfg.Policy = def.Policy
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.SweepMaxWait <= 0 {
		cfg.SweepMaxWait = def.SweepMaxWait
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	return &DialogMonitor{transport: transport, cfg: cfg}
}

// Start launches the background poll loop. With the block policy there is
// nothing to resolve automatically, so Start is a no-op.
func (m *DialogMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil || m.cfg.Policy == DialogBlock {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	done := make(chan struct{})
	m.done = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = m.CheckNow(ctx)
			}
		}
	}()
}

// Stop terminates the background poll and waits for it to exit.
func (m *DialogMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// CheckNow checks once for a present dialog and applies the policy. It
// reports whether a dialog was resolved. Under the block policy a present
// dialog returns a DialogBlockedError instead.
func (m *DialogMonitor) CheckNow(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	text, present, err := m.transport.AlertText()
	if err != nil || !present {
		return false, err
	}

	switch m.cfg.Policy {
	case DialogDismiss:
		if err := m.transport.DismissAlert(); err != nil {
			return false, err
		}
		m.record("dialog:auto-dismissed: " + text)
	case DialogBlock:
		return false, &DialogBlockedError{Message: text}
	default:
		if err := m.transport.AcceptAlert(); err != nil {
			return false, err
		}
		m.record("dialog:auto-accepted: " + text)
	}
	return true, nil
}

// SweepAfterNavigation polls briefly for dialogs that appear only after a
// navigation-class action (page-leave confirmations). It keeps polling while
// dialogs keep appearing and gives up after two quiet checks or the deadline.
func (m *DialogMonitor) SweepAfterNavigation(ctx context.Context) (bool, error) {
	deadline := time.Now().Add(m.cfg.SweepMaxWait)
	attempts := 0
	sawDialog := false
	handledAny := false

	for {
		handled, err := m.CheckNow(ctx)
		if err != nil {
			return handledAny, err
		}
		handledAny = handledAny || handled
		attempts++

		if handled {
			sawDialog = true
		} else {
			if sawDialog || attempts >= 2 {
				return handledAny, nil
			}
		}

		if time.Now().After(deadline) {
			return handledAny, nil
		}
		select {
		case <-ctx.Done():
			return handledAny, ctx.Err()
		case <-time.After(m.cfg.SweepInterval):
		}
	}
}

// ResolvedMessages returns the last dialogs resolved automatically, most
// recent last.
func (m *DialogMonitor) ResolvedMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.resolved))
	copy(out, m.resolved)
	return out
}

func (m *DialogMonitor) record(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, msg)
	if len(m.resolved) > 10 {
		m.resolved = m.resolved[len(m.resolved)-10:]
	}
}
