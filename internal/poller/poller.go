// Package poller drives bounded, self-terminating refresh retries for one
// domain list view. It is not a daemon: each Evaluate call inspects the
// persisted records and schedules at most one timer, and once the global
// attempt budget is spent the session goes quiet until a manual refresh.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"domainwatch/internal/registry"
	"domainwatch/internal/watch/models"
	id "domainwatch/pkg/domain"
)

const (
	defaultRetryCap = 3
	defaultStagger  = 500 * time.Millisecond
	refreshTimeout  = 30 * time.Second
)

// defaultSchedule holds the delay before each polling pass, indexed by the
// global attempt counter. Its length is the global attempt budget.
var defaultSchedule = []time.Duration{5 * time.Second, 15 * time.Second, 25 * time.Second}

// Refresher runs one refresh attempt for a domain.
type Refresher interface {
	RefreshDomain(ctx context.Context, domainID id.DomainID, force bool) (*models.RefreshResult, error)
}

// Lister returns the domains visible in this session's list view.
type Lister interface {
	ListDomainsForUser(ctx context.Context, userID id.UserID) ([]*models.DomainRecord, error)
}

// CancelFunc stops a scheduled callback. Reports whether it was stopped
// before firing.
type CancelFunc func() bool

// Scheduler defers a callback. Injected so the backoff sequence is testable
// without real delays.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) CancelFunc
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) CancelFunc {
	return time.AfterFunc(delay, fn).Stop
}

// Session is the retry state for one list view: a global attempt counter
// walking the delay schedule plus a per-domain retry counter capped
// independently. Both survive across Evaluate calls; neither survives the
// session.
type Session struct {
	refresher Refresher
	lister    Lister
	userID    id.UserID
	scheduler Scheduler
	logger    *slog.Logger

	schedule []time.Duration
	retryCap int
	stagger  time.Duration

	mu      sync.Mutex
	attempt int
	retries map[id.DomainID]int
	kicked  map[id.DomainID]bool
	pending CancelFunc
	cancels []CancelFunc
	stopped bool
}

type Option func(s *Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithScheduler(scheduler Scheduler) Option {
	return func(s *Session) {
		s.scheduler = scheduler
	}
}

// WithSchedule overrides the per-attempt delays; the slice length is the
// global attempt budget.
func WithSchedule(schedule []time.Duration) Option {
	return func(s *Session) {
		s.schedule = schedule
	}
}

// WithRetryCap overrides the per-domain consecutive retry cap.
func WithRetryCap(n int) Option {
	return func(s *Session) {
		s.retryCap = n
	}
}

// WithStagger overrides the delay step between immediate first refreshes.
func WithStagger(d time.Duration) Option {
	return func(s *Session) {
		s.stagger = d
	}
}

// NewSession builds the retry state for one list view.
func NewSession(refresher Refresher, lister Lister, userID id.UserID, opts ...Option) *Session {
	s := &Session{
		refresher: refresher,
		lister:    lister,
		userID:    userID,
		scheduler: TimerScheduler{},
		logger:    slog.Default(),
		schedule:  defaultSchedule,
		retryCap:  defaultRetryCap,
		stagger:   defaultStagger,
		retries:   make(map[id.DomainID]int),
		kicked:    make(map[id.DomainID]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate inspects the current records and decides whether to poll again.
// Never-refreshed domains get one immediate staggered refresh outside the
// attempt budget; domains with missing expiry data or a recorded upstream
// error consume one scheduled pass from the budget. At most one pass timer
// exists at a time.
func (s *Session) Evaluate(ctx context.Context) error {
	records, err := s.lister.ListDomainsForUser(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}

	s.kickNeverRefreshedLocked(records)

	candidates := s.retryCandidatesLocked(records)
	if len(candidates) == 0 || s.pending != nil {
		return nil
	}
	if s.attempt >= len(s.schedule) {
		s.logger.Debug("polling budget exhausted, going quiet", "attempts", s.attempt)
		s.stopped = true
		return nil
	}

	delay := s.schedule[s.attempt]
	s.attempt++
	s.pending = s.scheduler.Schedule(delay, func() {
		s.runPass(candidates)
	})
	return nil
}

// kickNeverRefreshedLocked schedules one immediate refresh per new domain,
// spaced by the stagger. Each domain is kicked at most once per session.
func (s *Session) kickNeverRefreshedLocked(records []*models.DomainRecord) {
	var i int
	for _, record := range records {
		if record.LastRefreshedAt != nil || s.kicked[record.ID] {
			continue
		}
		s.kicked[record.ID] = true
		domainID := record.ID
		cancel := s.scheduler.Schedule(time.Duration(i)*s.stagger, func() {
			s.refreshOne(domainID)
		})
		s.cancels = append(s.cancels, cancel)
		i++
	}
}

// retryCandidatesLocked picks the domains worth another automatic attempt: a
// completed refresh that still has no expiry date for a registered domain,
// or a raw payload carrying an upstream error. Unregistered domains are
// settled, not broken. Domains at their retry cap drop out.
func (s *Session) retryCandidatesLocked(records []*models.DomainRecord) []id.DomainID {
	var out []id.DomainID
	for _, record := range records {
		if record.LastRefreshedAt == nil {
			continue
		}
		if s.retries[record.ID] >= s.retryCap {
			continue
		}
		if !needsRetry(record) {
			continue
		}
		out = append(out, record.ID)
	}
	return out
}

func needsRetry(record *models.DomainRecord) bool {
	if registry.HasUpstreamError(record.RawResponse) {
		return true
	}
	registered := record.Registered != nil && *record.Registered
	return registered && record.ExpiryDate == nil
}

// runPass refreshes every candidate once, then re-evaluates.
func (s *Session) runPass(candidates []id.DomainID) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	for _, domainID := range candidates {
		s.retries[domainID]++
	}
	s.mu.Unlock()

	for _, domainID := range candidates {
		s.refreshOne(domainID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := s.Evaluate(ctx); err != nil {
		s.logger.Warn("poller re-evaluation failed", "error", err)
	}
}

// refreshOne runs a single non-forced refresh. A successful refresh resets
// the domain's consecutive retry counter.
func (s *Session) refreshOne(domainID id.DomainID) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	result, err := s.refresher.RefreshDomain(ctx, domainID, false)
	if err != nil {
		s.logger.Debug("automatic refresh failed", "domain_id", domainID, "error", err)
		return
	}
	if result.Success {
		s.mu.Lock()
		s.retries[domainID] = 0
		s.mu.Unlock()
	}
}

// Stop cancels all timers and silences the session permanently.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.pending != nil {
		s.pending()
		s.pending = nil
	}
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}
