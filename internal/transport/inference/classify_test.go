package inference

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/tenang-cloud/mindgate/internal/domain/fault"
)

func TestStatusKindTable(t *testing.T) {
	tests := []struct {
		code int
		want fault.Kind
	}{
		{500, fault.DownstreamError},
		{502, fault.DownstreamError},
		{503, fault.DownstreamError},
		{599, fault.DownstreamError},
		{429, fault.RateLimited},
		{400, fault.InvalidRequest},
		{422, fault.InvalidRequest},
		{401, fault.Unauthorized},
		{403, fault.Unauthorized},
		{404, fault.NotFound},
		{418, fault.Unknown},
		{301, fault.Unknown},
	}
	for _, tt := range tests {
		if got := statusKind(tt.code); got != tt.want {
			t.Errorf("statusKind(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestStatusKind_Idempotent(t *testing.T) {
	for _, code := range []int{400, 429, 500, 404, 418} {
		if statusKind(code) != statusKind(code) {
			t.Errorf("statusKind(%d) is not stable", code)
		}
	}
}

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestTransportFault(t *testing.T) {
	if got := transportFault(context.DeadlineExceeded); got.Kind() != fault.Timeout {
		t.Errorf("deadline exceeded -> %q, want timeout", got.Kind())
	}
	if got := transportFault(timeoutNetError{}); got.Kind() != fault.Timeout {
		t.Errorf("net timeout -> %q, want timeout", got.Kind())
	}

	refused := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	if got := transportFault(refused); got.Kind() != fault.Unavailable {
		t.Errorf("dial failure -> %q, want unavailable", got.Kind())
	}

	dnsErr := &net.DNSError{Err: "no such host", Name: "inference.invalid"}
	if got := transportFault(dnsErr); got.Kind() != fault.Unavailable {
		t.Errorf("dns failure -> %q, want unavailable", got.Kind())
	}

	if got := transportFault(errors.New("weird")); got.Kind() != fault.Unknown {
		t.Errorf("plain error -> %q, want unknown", got.Kind())
	}
}

func TestStatusFault_PrefersBodyMessage(t *testing.T) {
	f := statusFault(503, []byte(`{"message":"model warming up"}`))
	if f.Message() != "inference service error 503: model warming up" {
		t.Errorf("message = %q", f.Message())
	}

	f = statusFault(500, []byte(`{"error":"oom"}`))
	if f.Message() != "inference service error 500: oom" {
		t.Errorf("message = %q", f.Message())
	}

	f = statusFault(502, []byte("<html>nginx</html>"))
	if f.Message() != "inference service error 502: Bad Gateway" {
		t.Errorf("message = %q", f.Message())
	}
}

func TestBackoff_LinearPerKind(t *testing.T) {
	c := NewClient(&Config{
		BaseURL:          "http://unused",
		ServerBackoff:    2 * time.Second,
		NetworkBackoff:   3 * time.Second,
		RateLimitBackoff: 5 * time.Second,
	})

	if got := c.backoff(fault.DownstreamError, 0); got != 2*time.Second {
		t.Errorf("server attempt 0 = %v", got)
	}
	if got := c.backoff(fault.DownstreamError, 1); got != 4*time.Second {
		t.Errorf("server attempt 1 = %v, backoff is linear", got)
	}
	if got := c.backoff(fault.Unavailable, 0); got != 3*time.Second {
		t.Errorf("network attempt 0 = %v", got)
	}
	if got := c.backoff(fault.RateLimited, 0); got != 5*time.Second {
		t.Errorf("rate-limit attempt 0 = %v, 429 waits longer", got)
	}
	if got := c.backoff(fault.Timeout, 2); got != 6*time.Second {
		t.Errorf("timeout attempt 2 = %v", got)
	}
}
