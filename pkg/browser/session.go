package browser

import (
	"context"
	"time"

	"github.com/rishabhcli/browser-use/pkg/config"
	"github.com/rishabhcli/browser-use/pkg/logging"
)

// Session bundles one transport with the extraction, caching, dialog, health,
// and dispatch machinery configured from a single config. It is the unit a
// host holds on to.
type Session struct {
	transport  Transport
	cache      *StateCache
	dispatcher *Dispatcher
	dialogs    *DialogMonitor
	health     *HealthMonitor
	log        *logging.Logger
}

// NewSession assembles a session over a transport. A nil cfg uses defaults.
func NewSession(transport Transport, cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, _ := logging.NewLogger("browser-session")

	extractor := NewExtractor(ExtractorConfig{
		MaxElements:    cfg.Extraction.MaxElements,
		MaxTextLength:  cfg.Extraction.MaxTextLength,
		MinVisibleArea: cfg.Extraction.MinVisibleArea,
		OpacityCutoff:  cfg.Extraction.OpacityCutoff,
	})
	cache := NewStateCache(extractor, transport)
	health := NewHealthMonitor(transport, cfg.HealthProbeTimeout())
	dialogs := NewDialogMonitor(transport, DialogMonitorConfig{
		Policy:        DialogPolicy(cfg.Dialog.Policy),
		PollInterval:  time.Duration(cfg.Dialog.PollIntervalMs) * time.Millisecond,
		SweepMaxWait:  time.Duration(cfg.Dialog.SweepMaxWaitMs) * time.Millisecond,
		SweepInterval: time.Duration(cfg.Dialog.SweepIntervalMs) * time.Millisecond,
	})

	allowlist, err := config.NewAllowlist(cfg.Navigation.AllowedURLPatterns)
	if err != nil {
		return nil, err
	}

	dispatcher := NewDispatcher(transport, cache, health, dialogs, DispatcherConfig{
		Retry: RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
		},
		CommandTimeout:  cfg.CommandTimeout(),
		PageLoadTimeout: cfg.PageLoadTimeout(),
		ScriptTimeout:   cfg.ScriptTimeout(),
		AllowURL:        allowlist.Allows,
	}, log)

	return &Session{
		transport:  transport,
		cache:      cache,
		dispatcher: dispatcher,
		dialogs:    dialogs,
		health:     health,
		log:        log,
	}, nil
}

// Start launches the background dialog watch.
func (s *Session) Start(ctx context.Context) {
	s.dialogs.Start(ctx)
}

// Stop terminates background work. The transport is closed by its owner.
func (s *Session) Stop() {
	s.dialogs.Stop()
	s.log.Close()
}

// Dispatch executes one intent.
func (s *Session) Dispatch(ctx context.Context, intent Intent) (*Outcome, error) {
	return s.dispatcher.Dispatch(ctx, intent)
}

// IsAlive runs the liveness probe.
func (s *Session) IsAlive(ctx context.Context) bool {
	return s.health.IsAlive(ctx)
}

// StateText renders the currently cached snapshot as the host-facing
// enumeration. It never triggers extraction; dispatch RequestState first.
func (s *Session) StateText() string {
	return FormatSnapshot(s.cache.Current())
}

// SaveStorage persists the session cookies to path.
func (s *Session) SaveStorage(path string) error {
	return SaveStorageState(s.transport, path)
}

// LoadStorage restores cookies previously saved to path.
func (s *Session) LoadStorage(path string) error {
	return LoadStorageState(s.transport, path)
}
