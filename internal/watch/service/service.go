// Package service orchestrates domain tracking: batch adds, listing,
// removal, and registry refreshes. Handlers stay thin; stores stay dumb.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"domainwatch/internal/canonical"
	"domainwatch/internal/platform/events"
	"domainwatch/internal/registry/providers"
	"domainwatch/internal/watch/metrics"
	"domainwatch/internal/watch/models"
	"domainwatch/internal/watch/store"
	id "domainwatch/pkg/domain"
	dErrors "domainwatch/pkg/domain-errors"
	"domainwatch/pkg/platform/sentinel"
)

const (
	defaultCooldownWindow = 24 * time.Hour
	defaultMaxBatchSize   = 20

	// initialRefreshStagger spaces out the background lookups triggered by
	// a batch add so a 20-domain batch does not hammer the registry at once.
	initialRefreshStagger = 2 * time.Second

	// initialRefreshTimeout bounds each background lookup; these run
	// detached from the request context.
	initialRefreshTimeout = 30 * time.Second
)

// RegistryClient fetches raw registry data for a canonical domain name.
// bypass skips any read-through cache so a forced refresh sees live data.
type RegistryClient interface {
	Name() string
	Lookup(ctx context.Context, domain string, bypass bool) (providers.RawResponse, error)
}

// Service coordinates the store, the registry client, and the event stream.
type Service struct {
	store     store.Store
	registry  RegistryClient
	logger    *slog.Logger
	publisher events.Publisher
	metrics   *metrics.Metrics

	now            func() time.Time
	cooldown       time.Duration
	maxBatch       int
	initialRefresh bool

	// group coalesces concurrent refreshes of the same domain so the
	// registry sees at most one in-flight lookup per name.
	group singleflight.Group

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithCooldownWindow sets how long a successful refresh blocks the next one.
func WithCooldownWindow(window time.Duration) Option {
	return func(s *Service) {
		s.cooldown = window
	}
}

// WithMaxBatchSize caps how many domains one add request may carry.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		s.maxBatch = n
	}
}

// WithInitialRefresh toggles the background registry lookup that follows a
// newly created record. Tests disable it to keep adds synchronous.
func WithInitialRefresh(enabled bool) Option {
	return func(s *Service) {
		s.initialRefresh = enabled
	}
}

// New constructs a Service.
func New(st store.Store, registry RegistryClient, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if registry == nil {
		return nil, errors.New("registry client is required")
	}
	s := &Service{
		store:          st,
		registry:       registry,
		logger:         slog.Default(),
		now:            time.Now,
		cooldown:       defaultCooldownWindow,
		maxBatch:       defaultMaxBatchSize,
		initialRefresh: true,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close stops background refreshes and waits for in-flight ones to finish.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	return nil
}

// AddDomains canonicalizes and deduplicates the raw batch, then tracks each
// surviving name for the user. Item outcomes are independent: a store error
// on one name never unwinds the others. Newly created records get a
// staggered background registry lookup so expiry data appears without the
// user asking for a refresh.
func (s *Service) AddDomains(ctx context.Context, userID id.UserID, raws []string) (*models.AddResult, error) {
	if len(raws) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "domains array must not be empty")
	}
	if len(raws) > s.maxBatch {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"too many domains: got %d, the limit per request is %d", len(raws), s.maxBatch)
	}

	batch := canonical.Process(raws)
	result := &models.AddResult{
		Invalid:    batch.Invalid,
		Duplicates: batch.Duplicates,
	}

	var created []*models.DomainRecord
	for _, name := range batch.Valid {
		item, record, isNew := s.addOne(ctx, userID, name)
		result.Items = append(result.Items, item)
		if isNew {
			created = append(created, record)
		}
	}

	if s.initialRefresh {
		s.scheduleInitialRefreshes(created)
	}
	return result, nil
}

// addOne tracks a single canonical name for the user. Returns the item
// outcome, the record, and whether this call created the record.
func (s *Service) addOne(ctx context.Context, userID id.UserID, name string) (models.AddItem, *models.DomainRecord, bool) {
	record, isNew, err := s.findOrCreateDomain(ctx, name)
	if err != nil {
		s.logger.Error("failed to track domain", "domain", name, "error", err)
		return models.AddItem{Name: name, Status: models.AddStatusFailed, Reason: "could not save domain"}, nil, false
	}

	if err := s.store.CreateAssociation(ctx, userID, record.ID); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.AddItem{Name: name, Status: models.AddStatusAlreadyTracked, Record: record}, record, false
		}
		s.logger.Error("failed to associate domain", "domain", name, "user_id", userID, "error", err)
		return models.AddItem{Name: name, Status: models.AddStatusFailed, Reason: "could not save domain"}, nil, false
	}

	if isNew {
		s.metrics.IncrementAdded()
	}
	return models.AddItem{Name: name, Status: models.AddStatusAdded, Record: record}, record, isNew
}

// findOrCreateDomain resolves the shared record for a canonical name,
// creating it when absent. A create conflict means another request won the
// race; the record is re-read rather than failed.
func (s *Service) findOrCreateDomain(ctx context.Context, name string) (*models.DomainRecord, bool, error) {
	record, err := s.store.FindDomainByName(ctx, name)
	if err == nil {
		return record, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, err
	}

	record = &models.DomainRecord{
		ID:        id.NewDomainID(),
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateDomain(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			existing, findErr := s.store.FindDomainByName(ctx, name)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return record, true, nil
}

// scheduleInitialRefreshes launches one background lookup per new record,
// spaced by a fixed stagger. Close cancels the ones still waiting.
func (s *Service) scheduleInitialRefreshes(created []*models.DomainRecord) {
	for i, record := range created {
		s.wg.Add(1)
		go func(delay time.Duration, domainID id.DomainID, name string) {
			defer s.wg.Done()
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-s.done:
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), initialRefreshTimeout)
			defer cancel()
			if _, err := s.RefreshDomain(ctx, domainID, false); err != nil {
				s.logger.Warn("initial refresh failed", "domain", name, "error", err)
			}
		}(time.Duration(i)*initialRefreshStagger, record.ID, record.Name)
	}
}

// ListDomains returns the user's tracked domains, oldest first.
func (s *Service) ListDomains(ctx context.Context, userID id.UserID) ([]*models.DomainRecord, error) {
	records, err := s.store.ListDomainsForUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list domains")
	}
	return records, nil
}

// RemoveDomain stops tracking the domain for the user. The shared record
// survives until its last association goes.
func (s *Service) RemoveDomain(ctx context.Context, userID id.UserID, domainID id.DomainID) error {
	remaining, err := s.store.DeleteAssociation(ctx, userID, domainID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "domain is not tracked by this user")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove domain")
	}
	if remaining == 0 {
		s.metrics.IncrementRemoved()
		s.logger.Info("domain record deleted with last association", "domain_id", domainID)
	}
	return nil
}

// Refresh runs a registry refresh on behalf of a user. Domains the user does
// not track are reported as not found rather than leaking their existence.
func (s *Service) Refresh(ctx context.Context, userID id.UserID, domainID id.DomainID, force bool) (*models.RefreshResult, error) {
	tracked, err := s.store.HasAssociation(ctx, userID, domainID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check domain")
	}
	if !tracked {
		return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("domain %s is not tracked by this user", domainID))
	}
	return s.RefreshDomain(ctx, domainID, force)
}
