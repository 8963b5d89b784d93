package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckNowNoDialog(t *testing.T) {
	m := NewDialogMonitor(newFakeTransport(), DialogMonitorConfig{})

	handled, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestCheckNowAcceptPolicy(t *testing.T) {
	transport := newFakeTransport()
	transport.alertQueue = []string{"Delete this item?"}
	m := NewDialogMonitor(transport, DialogMonitorConfig{Policy: DialogAccept})

	handled, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"Delete this item?"}, transport.acceptedAlerts)
	assert.Equal(t, []string{"dialog:auto-accepted: Delete this item?"}, m.ResolvedMessages())
}

func TestCheckNowDismissPolicy(t *testing.T) {
	transport := newFakeTransport()
	transport.alertQueue = []string{"Subscribe to our newsletter!"}
	m := NewDialogMonitor(transport, DialogMonitorConfig{Policy: DialogDismiss})

	handled, err := m.CheckNow(context.Background())
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Empty(t, transport.acceptedAlerts)
	assert.Equal(t, []string{"Subscribe to our newsletter!"}, transport.dismissedAlert)
}

func TestCheckNowBlockPolicy(t *testing.T) {
	transport := newFakeTransport()
	transport.alertQueue = []string{"Leave site?"}
	m := NewDialogMonitor(transport, DialogMonitorConfig{Policy: DialogBlock})

	handled, err := m.CheckNow(context.Background())
	assert.False(t, handled)

	var blocked *DialogBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "Leave site?", blocked.Message)
	assert.Len(t, transport.alertQueue, 1, "block policy leaves the dialog up")
}

func TestSweepDrainsConsecutiveDialogs(t *testing.T) {
	transport := newFakeTransport()
	transport.alertQueue = []string{"first", "second"}
	m := NewDialogMonitor(transport, DialogMonitorConfig{
		SweepMaxWait:  50 * time.Millisecond,
		SweepInterval: time.Millisecond,
	})

	handled, err := m.SweepAfterNavigation(context.Background())
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{"first", "second"}, transport.acceptedAlerts)
}

func TestSweepQuietPageReturnsQuickly(t *testing.T) {
	transport := newFakeTransport()
	m := NewDialogMonitor(transport, DialogMonitorConfig{
		SweepMaxWait:  5 * time.Second,
		SweepInterval: time.Millisecond,
	})

	start := time.Now()
	handled, err := m.SweepAfterNavigation(context.Background())
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Less(t, time.Since(start), time.Second, "two quiet checks end the sweep, not the deadline")
}

func TestBackgroundPollResolvesDialog(t *testing.T) {
	transport := newFakeTransport()
	transport.alertQueue = []string{"background alert"}
	m := NewDialogMonitor(transport, DialogMonitorConfig{PollInterval: time.Millisecond})

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, func() bool {
		return len(m.ResolvedMessages()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"background alert"}, transport.acceptedAlerts)
}

func TestStopIsIdempotent(t *testing.T) {
	m := NewDialogMonitor(newFakeTransport(), DialogMonitorConfig{PollInterval: time.Millisecond})
	m.Start(context.Background())
	m.Stop()
	m.Stop()
}

func TestResolvedMessagesBounded(t *testing.T) {
	transport := newFakeTransport()
	m := NewDialogMonitor(transport, DialogMonitorConfig{})

	for i := 0; i < 15; i++ {
		transport.alertQueue = []string{"msg"}
		_, err := m.CheckNow(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, m.ResolvedMessages(), 10)
}
