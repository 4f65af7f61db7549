package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LimiterSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *LimiterSuite) SetupTest() {
	s.ctx = context.Background()
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) TestInMemory() {
	s.Run("admits up to the limit then refuses", func() {
		limiter := NewInMemory(3, time.Minute)

		for i := 0; i < 3; i++ {
			ok, err := limiter.Allow(s.ctx, "10.0.0.1")
			s.Require().NoError(err)
			s.True(ok)
		}

		ok, err := limiter.Allow(s.ctx, "10.0.0.1")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("keys are independent", func() {
		limiter := NewInMemory(1, time.Minute)

		ok, err := limiter.Allow(s.ctx, "10.0.0.1")
		s.Require().NoError(err)
		s.True(ok)

		ok, err = limiter.Allow(s.ctx, "10.0.0.2")
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("window expiry readmits the key", func() {
		limiter := NewInMemory(1, 20*time.Millisecond)

		ok, err := limiter.Allow(s.ctx, "10.0.0.1")
		s.Require().NoError(err)
		s.True(ok)

		ok, err = limiter.Allow(s.ctx, "10.0.0.1")
		s.Require().NoError(err)
		s.False(ok)

		time.Sleep(30 * time.Millisecond)

		ok, err = limiter.Allow(s.ctx, "10.0.0.1")
		s.Require().NoError(err)
		s.True(ok)
	})
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (l stubLimiter) Allow(context.Context, string) (bool, error) { return l.allowed, l.err }

func (s *LimiterSuite) TestMiddleware() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	do := func(limiter Limiter) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/register", nil)
		Middleware(limiter, logger)(next).ServeHTTP(rr, req)
		return rr
	}

	s.Run("passes allowed requests through", func() {
		rr := do(stubLimiter{allowed: true})
		s.Equal(http.StatusNoContent, rr.Code)
	})

	s.Run("refuses with 429 and Retry-After", func() {
		rr := do(stubLimiter{allowed: false})
		s.Equal(http.StatusTooManyRequests, rr.Code)
		s.NotEmpty(rr.Header().Get("Retry-After"))
		s.Contains(rr.Body.String(), "rate_limited")
	})

	s.Run("fails open when the limiter errors", func() {
		rr := do(stubLimiter{err: errors.New("redis down")})
		s.Equal(http.StatusNoContent, rr.Code)
	})
}
