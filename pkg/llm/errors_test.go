package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error_IncludesContext(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "server error",
		StatusCode: 503,
		Model:      "gemini-2.5-flash",
		Endpoint:   "https://generativelanguage.googleapis.com/v1beta/openai?key=secret",
	}

	result := err.Error()
	for _, want := range []string{"HTTP 503", "model=gemini-2.5-flash", "endpoint=generativelanguage.googleapis.com", "server error"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected %q in %q", want, result)
		}
	}
	if strings.Contains(result, "secret") || strings.Contains(result, "/v1beta") {
		t.Errorf("endpoint should be reduced to host, got %q", result)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrorTypeUnknown, "llm error", false, cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrorTypeTimeout, true},
		{"unauthorized", errors.New("error, status code: 401, message: invalid api key"), ErrorTypeAuth, false},
		{"model missing", errors.New("model gpt-9 does not exist"), ErrorTypeModel, false},
		{"not found", errors.New("status code: 404"), ErrorTypeEndpoint, false},
		{"refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true},
		{"rate limit", errors.New("status code: 429, RESOURCE_EXHAUSTED"), ErrorTypeRateLimited, true},
		{"safety", errors.New("response blocked by safety filters"), ErrorTypeRefused, false},
		{"server", errors.New("status code: 502 bad gateway"), ErrorTypeEndpoint, true},
		{"other", errors.New("something odd"), ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Type != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, got.Type)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, got.Retryable)
			}
			if IsRetryable(got) != tt.retryable {
				t.Errorf("IsRetryable disagrees with Retryable")
			}
		})
	}
}

func TestClassifyError_PassesThroughExisting(t *testing.T) {
	orig := NewError(ErrorTypeEmpty, "no choices", false, nil)
	if got := ClassifyError(fmt.Errorf("wrapped: %w", orig)); got != orig {
		t.Errorf("expected the wrapped *Error to be returned as-is")
	}
	if ClassifyError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestGetErrorType(t *testing.T) {
	if GetErrorType(errors.New("plain")) != ErrorTypeUnknown {
		t.Error("plain errors should classify as unknown")
	}
	if GetErrorType(NewError(ErrorTypeAuth, "x", false, nil)) != ErrorTypeAuth {
		t.Error("expected auth type")
	}
}

func TestError_IsRetryableMethod(t *testing.T) {
	transient := NewError(ErrorTypeEndpoint, "server error", true, nil)
	permanent := NewError(ErrorTypeAuth, "bad key", false, nil)

	if !transient.IsRetryable() {
		t.Error("expected endpoint error to be retryable")
	}
	if permanent.IsRetryable() {
		t.Error("expected auth error not to be retryable")
	}

	var r interface{ IsRetryable() bool }
	if !errors.As(fmt.Errorf("describe: %w", transient), &r) || !r.IsRetryable() {
		t.Error("expected wrapped error to expose IsRetryable")
	}
}
