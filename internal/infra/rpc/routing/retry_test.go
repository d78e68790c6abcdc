package routing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/infra/rpc/provider"
)

func TestClassify(t *testing.T) {
	withInfo, err := status.New(codes.FailedPrecondition, "alley B is not empty").WithDetails(&errdetails.ErrorInfo{
		Reason:   string(domain.KindAlleyNotEmpty),
		Domain:   ErrorInfoDomain,
		Metadata: map[string]string{"alley": "B"},
	})
	if err != nil {
		t.Fatalf("WithDetails: %v", err)
	}

	tests := []struct {
		name   string
		err    error
		expect FailureClass
	}{
		{"boss lock fault", &provider.Fault{Code: -32000, Message: "Unauthorized: Only the Boss can perform this action"}, ClassAuthorization},
		{"plain boss lock", errors.New("Only the Boss can perform this action"), ClassAuthorization},
		{"manager only", errors.New("neither boss nor manager"), ClassAuthorization},
		{"typed unauthorized", domain.Unauthorized(), ClassAuthorization},
		{"wrapped unauthorized", fmt.Errorf("addAlley: %w", domain.Unauthorized()), ClassAuthorization},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "nope"), ClassAuthorization},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "login"), ClassAuthorization},
		{"alley not empty", domain.AlleyNotEmpty("B"), ClassDomain},
		{"wrapped domain", fmt.Errorf("removeAlley: %w", domain.AlleyNotFound("C")), ClassDomain},
		{"grpc error info", withInfo.Err(), ClassDomain},
		{"service unavailable", provider.ErrServiceUnavailable, ClassConnectivity},
		{"connection reset", errors.New("connection reset by peer"), ClassConnectivity},
		{"timeout", context.DeadlineExceeded, ClassConnectivity},
		{"5xx", errors.New("http 502: bad gateway"), ClassConnectivity},
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), ClassConnectivity},
		{"fault without auth text", &provider.Fault{Code: -32603, Message: "canister trapped"}, ClassConnectivity},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.expect {
			t.Errorf("%s: Classify(%v) = %v, want %v", tt.name, tt.err, got, tt.expect)
		}
	}
}

func TestDomainErrorFromStatus(t *testing.T) {
	st, err := status.New(codes.FailedPrecondition, "immutable").WithDetails(&errdetails.ErrorInfo{
		Reason:   string(domain.KindInvariantViolation),
		Domain:   ErrorInfoDomain,
		Metadata: map[string]string{"field": "plotNumber"},
	})
	if err != nil {
		t.Fatalf("WithDetails: %v", err)
	}

	de, ok := DomainErrorFromStatus(st.Err())
	if !ok {
		t.Fatal("expected domain error")
	}
	if de.Kind != domain.KindInvariantViolation || de.Field != "plotNumber" {
		t.Errorf("unexpected domain error %+v", de)
	}
}

func TestCalculateBackoff(t *testing.T) {
	s := NewScheduler(RetryConfig{})
	expect := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for attempt, want := range expect {
		if got := s.Backoff(attempt); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func newTestScheduler(delays *[]time.Duration) *Scheduler {
	s := NewScheduler(DefaultRetryConfig)
	s.SetSleep(func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	})
	return s
}

func TestScheduler_RetriesConnectivity(t *testing.T) {
	var delays []time.Duration
	s := newTestScheduler(&delays)

	var notices []Notice
	s.SetNotifier(func(n Notice) { notices = append(notices, n) })

	calls := 0
	connErr := errors.New("connection refused")
	err := s.Execute(context.Background(), Operation{
		Name: "getAlleys",
		Invoke: func(ctx context.Context) error {
			calls++
			return connErr
		},
	})

	if calls != 3 {
		t.Errorf("expected 3 invocations, got %d", calls)
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("expected ErrRetriesExhausted, got %v", err)
	}
	if !errors.Is(err, connErr) {
		t.Errorf("expected last failure to be wrapped, got %v", err)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("unexpected delays %v", delays)
	}
	if len(notices) != 2 || notices[0].Attempt != 1 || notices[1].MaxAttempts != 3 {
		t.Errorf("unexpected notices %+v", notices)
	}
}

func TestScheduler_SucceedsAfterTransientFailure(t *testing.T) {
	var delays []time.Duration
	s := newTestScheduler(&delays)

	calls := 0
	got, err := Do(context.Background(), s, "getStatistics", func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("timeout")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("got %d after %d calls", got, calls)
	}
}

func TestScheduler_DomainAndAuthorizationFailFast(t *testing.T) {
	for _, failure := range []error{
		domain.AlleyNotEmpty("B"),
		&provider.Fault{Message: "Unauthorized: Only the Boss can perform this action"},
	} {
		var delays []time.Duration
		s := newTestScheduler(&delays)

		calls := 0
		err := s.Execute(context.Background(), Operation{
			Name: "removeAlley",
			Invoke: func(ctx context.Context) error {
				calls++
				return failure
			},
		})
		if calls != 1 {
			t.Errorf("%v: expected 1 invocation, got %d", failure, calls)
		}
		if err != failure {
			t.Errorf("expected original failure, got %v", err)
		}
		if errors.Is(err, ErrRetriesExhausted) {
			t.Error("fail-fast must not report exhaustion")
		}
		if len(delays) != 0 {
			t.Errorf("expected no waits, got %v", delays)
		}
	}
}

func TestScheduler_ContextCancelledDuringWait(t *testing.T) {
	s := NewScheduler(DefaultRetryConfig)
	ctx, cancel := context.WithCancel(context.Background())
	s.SetSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	calls := 0
	err := s.Execute(ctx, Operation{
		Name:   "getGraves",
		Invoke: func(ctx context.Context) error { calls++; return errors.New("network") },
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 invocation, got %d", calls)
	}
}

func TestScheduler_ExecuteNSingleAttempt(t *testing.T) {
	var delays []time.Duration
	s := newTestScheduler(&delays)

	calls := 0
	err := s.ExecuteN(context.Background(), Operation{
		Name:   "health",
		Invoke: func(ctx context.Context) error { calls++; return errors.New("down") },
	}, 1)
	if calls != 1 || !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("calls=%d err=%v", calls, err)
	}
}

func TestOutcome(t *testing.T) {
	if p := Outcome(errors.New("connection refused")); p.Kind != PresentNotice || !p.Retryable || p.Text != ConnectivityNotice {
		t.Errorf("unexpected connectivity presentation %+v", p)
	}
	if p := Outcome(domain.AlleyNotEmpty("B")); p.Kind != PresentMessage || p.Text != "alley B is not empty." {
		t.Errorf("unexpected domain presentation %+v", p)
	}
	if p := Outcome(domain.InvariantViolation("plotNumber")); p.Text != "field plotNumber is immutable." {
		t.Errorf("unexpected invariant presentation %+v", p)
	}
	if p := Outcome(&provider.Fault{Message: "Unauthorized"}); p.Kind != PresentTerminal || p.Retryable {
		t.Errorf("unexpected authorization presentation %+v", p)
	}
}
