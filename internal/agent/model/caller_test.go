package model_test

//go:generate mockgen -source=caller.go -destination=mocks/mocks.go -package=mocks Generator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycgate/internal/agent/model"
	"kycgate/internal/agent/model/mocks"
	"kycgate/internal/llm/gemini"
)

type CallerSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	gen    *mocks.MockGenerator
	sleeps []time.Duration
	caller *model.Caller
}

func TestCallerSuite(t *testing.T) {
	suite.Run(t, new(CallerSuite))
}

func (s *CallerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gen = mocks.NewMockGenerator(s.ctrl)
	s.sleeps = nil
	s.caller = model.NewCaller(s.gen,
		model.WithBackoffUnit(time.Second),
		model.WithSleeper(func(_ context.Context, d time.Duration) error {
			s.sleeps = append(s.sleeps, d)
			return nil
		}),
		model.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *CallerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CallerSuite) request() model.Request {
	return model.Request{
		Role:         "Document_Checker",
		Model:        "gemini-1.5-pro-002",
		Instructions: "Verify the documents.",
		Input:        map[string]any{"name": "Budi Santoso", "customer_id": "C-1"},
	}
}

var rateLimited = &gemini.APIError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded"}

// =============================================================================
// Successful calls
// =============================================================================

func (s *CallerSuite) TestParsedReply() {
	s.gen.EXPECT().Generate(gomock.Any(), "gemini-1.5-pro-002", gomock.Any()).
		Return("```json\n{\"status\": \"VERIFIED\", \"confidence\": 92}\n```", nil)

	res, err := s.caller.Analyze(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(model.OutcomeParsed, res.Outcome)
	s.Equal(1, res.Attempts)
	s.Equal("VERIFIED", res.Output["status"])
	s.Empty(s.sleeps)
}

func (s *CallerSuite) TestNonJSONReplyIsReviewable() {
	s.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("The documents look fine to me.", nil)

	res, err := s.caller.Analyze(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(model.OutcomeParseError, res.Outcome)
	s.Equal("NEEDS_REVIEW", res.Output["status"])
	s.Equal("The documents look fine to me.", res.Output["raw_analysis"])
	s.Equal("Response was not valid JSON", res.Output["parse_error"])
}

// =============================================================================
// Retry behaviour
// =============================================================================

func (s *CallerSuite) TestRateLimitThenSuccess() {
	gomock.InOrder(
		s.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("", rateLimited),
		s.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(`{"status":"VERIFIED"}`, nil),
	)

	res, err := s.caller.Analyze(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(model.OutcomeParsed, res.Outcome)
	s.Equal(2, res.Attempts)
	s.Equal([]time.Duration{2 * time.Second}, s.sleeps)
}

func (s *CallerSuite) TestRateLimitExhaustsAfterThreeAttempts() {
	s.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("", rateLimited).Times(3)

	res, err := s.caller.Analyze(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(model.OutcomeFallback, res.Outcome)
	s.Equal(3, res.Attempts)
	s.ErrorIs(res.Err, rateLimited)
	s.Equal([]time.Duration{2 * time.Second, 4 * time.Second}, s.sleeps, "no wait after the final attempt")

	s.Equal("NEEDS_REVIEW", res.Output["status"])
	s.Equal(0, res.Output["confidence"])
	s.Equal("AI analysis unavailable - requires manual review", res.Output["details"])
	s.Equal([]string{"customer_id", "name"}, res.Output["input_received"])
}

func (s *CallerSuite) TestQuotaMessageWithoutStatusIsRetried() {
	gomock.InOrder(
		s.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("quota exceeded for project")),
		s.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return(`{"status":"VERIFIED"}`, nil),
	)

	res, err := s.caller.Analyze(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(2, res.Attempts)
}

func (s *CallerSuite) TestOtherErrorsAreNotRetried() {
	s.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", &gemini.APIError{StatusCode: 500, Message: "internal"}).Times(1)

	res, err := s.caller.Analyze(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(model.OutcomeFallback, res.Outcome)
	s.Equal(1, res.Attempts)
	s.Empty(s.sleeps)
}

func (s *CallerSuite) TestCancelledBackoffFallsBack() {
	caller := model.NewCaller(s.gen,
		model.WithSleeper(func(ctx context.Context, _ time.Duration) error { return context.DeadlineExceeded }),
		model.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("", rateLimited).Times(1)

	res, err := caller.Analyze(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(model.OutcomeFallback, res.Outcome)
	s.ErrorIs(res.Err, context.DeadlineExceeded)
}

func (s *CallerSuite) TestCustomAttemptBound() {
	caller := model.NewCaller(s.gen,
		model.WithMaxAttempts(1),
		model.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("", rateLimited).Times(1)

	res, err := caller.Analyze(context.Background(), s.request())
	s.Require().NoError(err)
	s.Equal(1, res.Attempts)
}

// =============================================================================
// Prompt construction
// =============================================================================

func (s *CallerSuite) TestUnencodableInputIsAnError() {
	req := s.request()
	req.Input = map[string]any{"bad": make(chan int)}

	_, err := s.caller.Analyze(context.Background(), req)
	s.Error(err)
}

func TestIsRateLimited(t *testing.T) {
	cases := map[string]bool{
		"HTTP 429 Too Many Requests":   true,
		"You exceeded your quota":      true,
		"rate limit reached":           true,
		"rate-limited by upstream":     true,
		"RESOURCE_EXHAUSTED":           true,
		"failed to generate content":   false,
		"accurate results unavailable": false,
		"connection reset by peer":     false,
	}
	for msg, want := range cases {
		if got := model.IsRateLimited(errors.New(msg)); got != want {
			t.Errorf("IsRateLimited(%q) = %v, want %v", msg, got, want)
		}
	}
	if model.IsRateLimited(context.DeadlineExceeded) {
		t.Error("deadline must not be treated as rate limiting")
	}
	if model.IsRateLimited(&gemini.APIError{StatusCode: 503, Message: "quota service down"}) {
		t.Error("typed errors classify themselves")
	}
}
