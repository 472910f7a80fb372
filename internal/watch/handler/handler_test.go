package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"domainwatch/internal/registry/providers"
	"domainwatch/internal/watch/models"
	"domainwatch/internal/watch/service"
	"domainwatch/internal/watch/store"
	id "domainwatch/pkg/domain"
)

// fakeRegistry drives the refresh endpoint without network access. The rest
// of the stack is real: in-memory store plus the actual service.
type fakeRegistry struct {
	response providers.RawResponse
	err      error
}

func (f *fakeRegistry) Name() string { return "fake" }

func (f *fakeRegistry) Lookup(_ context.Context, _ string, _ bool) (providers.RawResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

type HandlerSuite struct {
	suite.Suite
	registry *fakeRegistry
	service  *service.Service
	router   *chi.Mux
	userID   id.UserID
	nowTime  time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.registry = &fakeRegistry{
		response: providers.RawResponse{
			"status":      "registered",
			"expiry_date": "2027-06-01",
		},
	}
	s.userID = id.NewUserID()
	s.nowTime = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := service.New(store.NewInMemory(), s.registry,
		service.WithLogger(logger),
		service.WithClock(func() time.Time { return s.nowTime }),
		service.WithInitialRefresh(false),
	)
	s.Require().NoError(err)
	s.service = svc

	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-User-ID", s.userID.String())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerSuite) addDomain(name string) id.DomainID {
	result, err := s.service.AddDomains(context.Background(), s.userID, []string{name})
	s.Require().NoError(err)
	s.Require().Len(result.Items, 1)
	return result.Items[0].Record.ID
}

func (s *HandlerSuite) TestAddDomains() {
	s.Run("partitions the batch", func() {
		w := s.do(http.MethodPost, "/domains", `{"domains":["Example.com","www.example.com","bad domain"]}`)
		s.Require().Equal(http.StatusOK, w.Code)

		var result models.AddResult
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
		s.Require().Len(result.Items, 1)
		s.Equal("example.com", result.Items[0].Name)
		s.Equal(models.AddStatusAdded, result.Items[0].Status)
		s.Equal([]string{"bad domain"}, result.Invalid)
		s.Equal([]string{"www.example.com"}, result.Duplicates)
	})

	s.Run("rejects malformed json", func() {
		w := s.do(http.MethodPost, "/domains", `{"domains":`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("rejects an oversized batch with a descriptive error", func() {
		names := make([]string, 25)
		for i := range names {
			names[i] = "example.com"
		}
		body, err := json.Marshal(AddDomainsRequest{Domains: names})
		s.Require().NoError(err)

		w := s.do(http.MethodPost, "/domains", string(body))
		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), "25")
		s.Contains(w.Body.String(), "20")
	})

	s.Run("requires a user header", func() {
		req := httptest.NewRequest(http.MethodPost, "/domains", strings.NewReader(`{"domains":["example.com"]}`))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), "X-User-ID")
	})
}

func (s *HandlerSuite) TestListDomains() {
	s.addDomain("listed.com")

	w := s.do(http.MethodGet, "/domains", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var resp ListDomainsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Domains, 1)
	s.Equal("listed.com", resp.Domains[0].Name)
}

func (s *HandlerSuite) TestRemoveDomain() {
	domainID := s.addDomain("removed.com")

	s.Run("removes a tracked domain", func() {
		w := s.do(http.MethodDelete, "/domains/"+domainID.String(), "")
		s.Equal(http.StatusNoContent, w.Code)
	})

	s.Run("second delete is not found", func() {
		w := s.do(http.MethodDelete, "/domains/"+domainID.String(), "")
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("malformed id is a bad request", func() {
		w := s.do(http.MethodDelete, "/domains/not-a-uuid", "")
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestRefresh() {
	domainID := s.addDomain("refresh.com")

	s.Run("applies registry data", func() {
		w := s.do(http.MethodPost, "/domains/"+domainID.String()+"/refresh", "")
		s.Require().Equal(http.StatusOK, w.Code)

		var result models.RefreshResult
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
		s.True(result.Success)
		s.Require().NotNil(result.Record)
		s.NotNil(result.Record.ExpiryDate)
	})

	s.Run("cooldown is 429 with remaining hours", func() {
		s.nowTime = s.nowTime.Add(time.Hour)
		w := s.do(http.MethodPost, "/domains/"+domainID.String()+"/refresh", "")
		s.Require().Equal(http.StatusTooManyRequests, w.Code)

		var result models.RefreshResult
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
		s.True(result.OnCooldown)
		s.Equal(23, result.HoursRemaining)
	})

	s.Run("force bypasses the cooldown", func() {
		w := s.do(http.MethodPost, "/domains/"+domainID.String()+"/refresh?force=true", "")
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("upstream timeout keeps the stale record in the body", func() {
		s.registry.err = providers.NewError(providers.ErrorTimeout, "fake", "deadline exceeded", nil)
		w := s.do(http.MethodPost, "/domains/"+domainID.String()+"/refresh?force=true", "")
		s.Require().Equal(http.StatusGatewayTimeout, w.Code)

		var result models.RefreshResult
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
		s.False(result.Success)
		s.Require().NotNil(result.Record)
		s.NotNil(result.Record.ExpiryDate)
		s.NotEmpty(result.Message)
	})

	s.Run("unknown domain is not found", func() {
		w := s.do(http.MethodPost, "/domains/"+id.NewDomainID().String()+"/refresh", "")
		s.Equal(http.StatusNotFound, w.Code)
	})
}
