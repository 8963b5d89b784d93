package browser

import (
	"context"
	"time"
)

// DefaultHealthProbeTimeout bounds the liveness round-trip. The probe must be
// much cheaper than a real action attempt or it defeats its purpose.
const DefaultHealthProbeTimeout = 3 * time.Second

// HealthMonitor runs a trivial script round-trip to decide whether the
// session is worth spending a retry budget on.
type HealthMonitor struct {
	transport    Transport
	probeTimeout time.Duration
}

// NewHealthMonitor creates a monitor with the given probe timeout
// (DefaultHealthProbeTimeout when zero).
func NewHealthMonitor(transport Transport, probeTimeout time.Duration) *HealthMonitor {
	if probeTimeout <= 0 {
		probeTimeout = DefaultHealthProbeTimeout
	}
	return &HealthMonitor{transport: transport, probeTimeout: probeTimeout}
}

// IsAlive reports whether the session answered the probe in time.
func (m *HealthMonitor) IsAlive(ctx context.Context) bool {
	return m.Check(ctx) == nil
}

// Check returns a SessionDeadError describing why the probe failed, or nil.
func (m *HealthMonitor) Check(ctx context.Context) error {
	_, err := callWithTimeout(ctx, "health_probe", m.probeTimeout, func() (any, error) {
		return m.transport.RunScript(healthScript)
	})
	if err != nil {
		return &SessionDeadError{Cause: err}
	}
	return nil
}
