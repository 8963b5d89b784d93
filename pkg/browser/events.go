package browser

import "sync"

// eventLog is a bounded ring of recent action labels surfaced to the host in
// BrowserState so it can see what happened between state requests.
type eventLog struct {
	mu      sync.Mutex
	entries []string
	max     int
}

func newEventLog(max int) *eventLog {
	if max <= 0 {
		max = 20
	}
	return &eventLog{max: max}
}

func (l *eventLog) add(label string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, label)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}
