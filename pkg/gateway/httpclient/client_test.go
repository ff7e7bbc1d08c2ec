package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	cause := errors.New("bad request")
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return Permanent(cause)
	})
	if !errors.Is(err, cause) || calls != 1 {
		t.Fatalf("expected one call returning cause, got %d calls and %v", calls, err)
	}
}

func TestRetryRecovers(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third call, got %d calls and %v", calls, err)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Retry(ctx, 3, time.Millisecond, func() error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	cases := map[int]bool{200: false, 404: true, 429: false, 503: false}
	for code, permanent := range cases {
		err := CheckStatus(&http.Response{StatusCode: code, Status: http.StatusText(code)})
		if code == 200 {
			if err != nil {
				t.Fatalf("expected nil for 200, got %v", err)
			}
			continue
		}
		if IsPermanent(err) != permanent {
			t.Fatalf("status %d: expected permanent=%v, got %v", code, permanent, err)
		}
	}
}

func TestClientSetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.UserAgent()
	}))
	defer srv.Close()

	resp, err := New(time.Second).Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if got != userAgent {
		t.Fatalf("expected %q, got %q", userAgent, got)
	}
}
