package service

import (
	"errors"
	"time"

	"domainwatch/internal/platform/events"
	"domainwatch/internal/registry/providers"
	id "domainwatch/pkg/domain"
	dErrors "domainwatch/pkg/domain-errors"
)

func (s *ServiceSuite) addTracked(name string) id.DomainID {
	result, err := s.service.AddDomains(s.ctx, s.userID, []string{name})
	s.Require().NoError(err)
	s.Require().Len(result.Items, 1)
	return result.Items[0].Record.ID
}

func (s *ServiceSuite) TestRefreshAppliesRegistryData() {
	domainID := s.addTracked("refresh.com")

	result, err := s.service.Refresh(s.ctx, s.userID, domainID, false)
	s.Require().NoError(err)
	s.True(result.Success)

	record := result.Record
	s.Require().NotNil(record.Registered)
	s.True(*record.Registered)
	s.Require().NotNil(record.ExpiryDate)
	s.Equal(time.Date(2027, 3, 14, 0, 0, 0, 0, time.UTC), record.ExpiryDate.UTC())
	s.Require().NotNil(record.Registrar)
	s.Equal("Example Registrar Inc", *record.Registrar)
	s.Require().NotNil(record.LastRefreshedAt)
	s.Equal(s.nowTime, record.LastRefreshedAt.UTC())
	s.NotNil(record.RawResponse)

	s.Require().Len(s.publisher.Events(), 1)
	event := s.publisher.Events()[0]
	s.Equal(events.OutcomeRefreshed, event.Outcome)
	s.Equal("refresh.com", event.Name)
	s.Require().NotNil(event.ExpiryDate)
}

func (s *ServiceSuite) TestRefreshUnregisteredDomain() {
	s.registry.response = providers.RawResponse{
		"status": "available",
	}
	domainID := s.addTracked("unclaimed.com")

	result, err := s.service.Refresh(s.ctx, s.userID, domainID, false)
	s.Require().NoError(err)
	s.True(result.Success)

	record := result.Record
	s.Require().NotNil(record.Registered)
	s.False(*record.Registered)
	s.Nil(record.ExpiryDate)
	s.Nil(record.Registrar)
	s.NotNil(record.RawResponse)
	s.NotNil(record.LastRefreshedAt)

	s.Require().Len(s.publisher.Events(), 1)
	s.Equal(events.OutcomeUnregistered, s.publisher.Events()[0].Outcome)
}

func (s *ServiceSuite) TestRefreshCooldown() {
	domainID := s.addTracked("cooldown.com")

	_, err := s.service.Refresh(s.ctx, s.userID, domainID, false)
	s.Require().NoError(err)
	s.Equal(1, s.registry.callCount())

	s.Run("second refresh inside the window is blocked, not an error", func() {
		s.nowTime = s.nowTime.Add(23 * time.Hour)
		result, err := s.service.Refresh(s.ctx, s.userID, domainID, false)
		s.Require().NoError(err)
		s.False(result.Success)
		s.True(result.OnCooldown)
		s.Equal(1, result.HoursRemaining)
		s.Contains(result.Message, "1 hours")
		s.Equal(1, s.registry.callCount(), "blocked refresh must not hit the registry")
	})

	s.Run("force bypasses the window and the cache", func() {
		result, err := s.service.Refresh(s.ctx, s.userID, domainID, true)
		s.Require().NoError(err)
		s.True(result.Success)
		s.Equal(2, s.registry.callCount())
		s.True(s.registry.bypasses[len(s.registry.bypasses)-1])
	})

	s.Run("window reopens once elapsed", func() {
		s.nowTime = s.nowTime.Add(25 * time.Hour)
		result, err := s.service.Refresh(s.ctx, s.userID, domainID, false)
		s.Require().NoError(err)
		s.True(result.Success)
	})
}

func (s *ServiceSuite) TestRefreshUpstreamFailure() {
	domainID := s.addTracked("flaky.com")

	// Seed real data, then break the provider.
	_, err := s.service.Refresh(s.ctx, s.userID, domainID, false)
	s.Require().NoError(err)
	seeded, err := s.store.FindDomainByID(s.ctx, domainID)
	s.Require().NoError(err)

	s.registry.err = providers.NewError(providers.ErrorTimeout, "stub", "deadline exceeded", errors.New("timeout"))
	s.nowTime = s.nowTime.Add(48 * time.Hour)

	result, err := s.service.Refresh(s.ctx, s.userID, domainID, false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.Require().NotNil(result)
	s.False(result.Success)
	s.NotEmpty(result.Message)

	s.Run("stale record is returned untouched", func() {
		s.Require().NotNil(result.Record)
		s.Equal(seeded.ExpiryDate, result.Record.ExpiryDate)
		s.Equal(seeded.LastRefreshedAt, result.Record.LastRefreshedAt)
	})

	s.Run("failure never starts a cooldown window", func() {
		stored, err := s.store.FindDomainByID(s.ctx, domainID)
		s.Require().NoError(err)
		s.Equal(seeded.LastRefreshedAt, stored.LastRefreshedAt)

		s.registry.err = nil
		result, err := s.service.Refresh(s.ctx, s.userID, domainID, false)
		s.Require().NoError(err)
		s.True(result.Success)
	})

	s.Run("failure event was published", func() {
		var failed int
		for _, event := range s.publisher.Events() {
			if event.Outcome == events.OutcomeFailed {
				failed++
			}
		}
		s.Equal(1, failed)
	})
}

func (s *ServiceSuite) TestRefreshConfigErrorIsNotRetryable() {
	s.registry.err = providers.NewError(providers.ErrorConfig, "stub", "api key rejected", nil)
	domainID := s.addTracked("misconfigured.com")

	result, err := s.service.Refresh(s.ctx, s.userID, domainID, false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUpstreamConfig))
	s.Require().NotNil(result)
	s.False(result.Success)
	s.Nil(result.Record.LastRefreshedAt)
}

func (s *ServiceSuite) TestRefreshUnknownDomain() {
	s.Run("untracked domain is not found for the user", func() {
		domainID := s.addTracked("mine.com")
		stranger := id.NewUserID()
		_, err := s.service.Refresh(s.ctx, stranger, domainID, false)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.RefreshDomain(s.ctx, id.NewDomainID(), false)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
