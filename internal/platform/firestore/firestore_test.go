package firestore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"finitefield.org/wheel-of-life/internal/platform/config"
)

func TestWrapErrorClassifies(t *testing.T) {
	cases := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{code: codes.NotFound, notFound: true},
		{code: codes.AlreadyExists, conflict: true},
		{code: codes.Aborted, conflict: true},
		{code: codes.Unavailable, unavailable: true},
		{code: codes.ResourceExhausted, unavailable: true},
		{code: codes.PermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			err := WrapError("state.get", status.Error(tc.code, "boom"))
			var fsErr *Error
			if !errors.As(err, &fsErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if fsErr.IsNotFound() != tc.notFound || fsErr.IsConflict() != tc.conflict || fsErr.IsUnavailable() != tc.unavailable {
				t.Errorf("unexpected classification for %s: %+v", tc.code, fsErr)
			}
			if got := err.Error(); got != "state.get: rpc error: code = "+tc.code.String()+" desc = boom" {
				t.Errorf("unexpected message %q", got)
			}
		})
	}
}

func TestWrapErrorPassesCancellation(t *testing.T) {
	if err := WrapError("op", nil); err != nil {
		t.Fatalf("nil should stay nil, got %v", err)
	}
	if err := WrapError("op", fmt.Errorf("wrapped: %w", context.Canceled)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", status.Error(codes.Canceled, "gone")); err != context.Canceled {
		t.Errorf("expected plain context.Canceled, got %v", err)
	}
	if err := WrapError("op", status.Error(codes.DeadlineExceeded, "slow")); err != context.DeadlineExceeded {
		t.Errorf("expected plain context.DeadlineExceeded, got %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(status.Error(codes.NotFound, "missing")) {
		t.Error("raw grpc not-found should match")
	}
	if !IsNotFound(fmt.Errorf("ctx: %w", WrapError("op", status.Error(codes.NotFound, "missing")))) {
		t.Error("wrapped not-found should match")
	}
	if IsNotFound(errors.New("other")) {
		t.Error("plain error should not match")
	}
}

func TestProviderRequiresProject(t *testing.T) {
	t.Setenv(envGoogleProjectID, "")
	p := NewProvider(config.FirestoreConfig{})
	if _, err := p.Client(context.Background()); err == nil {
		t.Fatal("expected project id error")
	}
}

func TestProviderReusesClientAndCloses(t *testing.T) {
	calls := 0
	var gotProject string
	var gotOpts int
	p := NewProvider(config.FirestoreConfig{ProjectID: "wheel-dev", EmulatorHost: "localhost:8081"})
	p.newClient = func(_ context.Context, projectID string, opts ...option.ClientOption) (*firestore.Client, error) {
		calls++
		gotProject, gotOpts = projectID, len(opts)
		return &firestore.Client{}, nil
	}

	first, err := p.Client(context.Background())
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	second, _ := p.Client(context.Background())
	if first != second || calls != 1 {
		t.Errorf("expected one shared client, got %d creations", calls)
	}
	if gotProject != "wheel-dev" || gotOpts != 3 {
		t.Errorf("unexpected client settings: project=%s opts=%d", gotProject, gotOpts)
	}

	p.client = nil // nothing real to close
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := p.Client(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Errorf("expected ErrProviderClosed, got %v", err)
	}
}

func TestProviderRetriesAfterFailure(t *testing.T) {
	fail := true
	p := NewProvider(config.FirestoreConfig{ProjectID: "wheel-dev"})
	p.newClient = func(context.Context, string, ...option.ClientOption) (*firestore.Client, error) {
		if fail {
			return nil, errors.New("dial failed")
		}
		return &firestore.Client{}, nil
	}
	if _, err := p.Client(context.Background()); err == nil {
		t.Fatal("expected dial failure")
	}
	fail = false
	if _, err := p.Client(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
}
