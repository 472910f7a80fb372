package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"domainwatch/internal/platform/events"
	"domainwatch/internal/registry"
	"domainwatch/internal/registry/providers"
	"domainwatch/internal/watch/gate"
	"domainwatch/internal/watch/models"
	id "domainwatch/pkg/domain"
	dErrors "domainwatch/pkg/domain-errors"
	"domainwatch/pkg/platform/sentinel"
)

const publishTimeout = 5 * time.Second

// refreshOutcome pairs the user-facing result with the typed error so both
// survive the singleflight round trip. An upstream failure carries the stale
// record in the result AND a typed error for status mapping.
type refreshOutcome struct {
	result *models.RefreshResult
	err    error
}

// RefreshDomain fetches live registry data for the domain and applies it to
// the store. Concurrent calls for the same domain are coalesced into one
// lookup; every caller gets the shared outcome.
//
// The cooldown gate runs before any network work: a domain refreshed within
// the window yields an on-cooldown result, not an error. A failed lookup
// leaves the stored record and its refresh timestamp untouched, so the
// cooldown window never starts from a failure.
func (s *Service) RefreshDomain(ctx context.Context, domainID id.DomainID, force bool) (*models.RefreshResult, error) {
	v, err, _ := s.group.Do(domainID.String(), func() (any, error) {
		result, refreshErr := s.doRefresh(ctx, domainID, force)
		return refreshOutcome{result: result, err: refreshErr}, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "refresh failed")
	}
	outcome := v.(refreshOutcome)
	return outcome.result, outcome.err
}

func (s *Service) doRefresh(ctx context.Context, domainID id.DomainID, force bool) (*models.RefreshResult, error) {
	record, err := s.store.FindDomainByID(ctx, domainID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("domain %s not found", domainID))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load domain")
	}

	decision := gate.Check(record.LastRefreshedAt, s.now(), s.cooldown, force)
	if !decision.Allowed() {
		s.metrics.IncrementCooldownBlocked()
		return &models.RefreshResult{
			OnCooldown:     true,
			HoursRemaining: decision.HoursRemaining,
			Record:         record,
			Message:        fmt.Sprintf("domain was refreshed recently; try again in %d hours", decision.HoursRemaining),
		}, nil
	}

	start := time.Now()
	raw, err := s.registry.Lookup(ctx, record.Name, force)
	elapsed := time.Since(start)
	if err != nil {
		domainErr := providers.ToDomainError(err)
		s.metrics.ObserveRefresh(string(events.OutcomeFailed), elapsed)
		s.logger.Warn("registry lookup failed",
			"domain", record.Name, "provider", s.registry.Name(), "error", err)
		s.publish(events.RefreshEvent{
			DomainID:   record.ID,
			Name:       record.Name,
			Outcome:    events.OutcomeFailed,
			Error:      err.Error(),
			OccurredAt: s.now(),
		})

		message := "registry lookup failed"
		var de *dErrors.Error
		if errors.As(domainErr, &de) {
			message = de.Message
		}
		return &models.RefreshResult{Success: false, Record: record, Message: message}, domainErr
	}

	patch := registry.Normalize(raw)
	updated, err := s.store.ApplyRefresh(ctx, record.ID, patch, s.now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save refreshed domain")
	}

	outcome := events.OutcomeRefreshed
	if !patch.Registered {
		outcome = events.OutcomeUnregistered
	}
	s.metrics.ObserveRefresh(string(outcome), elapsed)
	s.logger.Info("domain refreshed",
		"domain", updated.Name, "outcome", string(outcome), "provider", s.registry.Name(), "took", elapsed)
	s.publish(events.RefreshEvent{
		DomainID:   updated.ID,
		Name:       updated.Name,
		Outcome:    outcome,
		ExpiryDate: updated.ExpiryDate,
		OccurredAt: s.now(),
	})

	return &models.RefreshResult{Success: true, Record: updated}, nil
}

// publish delivers a refresh event on its own deadline so a slow broker
// cannot stall the refresh path.
func (s *Service) publish(event events.RefreshEvent) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish refresh event", "domain", event.Name, "error", err)
	}
}
