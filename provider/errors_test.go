package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"testing"
)

func TestWrapErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   string
		wantStatus int
	}{
		{"unauthorized", &httpStatusError{StatusCode: 401, Body: "{}"}, ErrorTypeAuth, 401},
		{"forbidden", &httpStatusError{StatusCode: 403}, ErrorTypeAuth, 403},
		{"rate limited", &httpStatusError{StatusCode: 429}, ErrorTypeAPI, 429},
		{"wrapped status", fmt.Errorf("request: %w", &httpStatusError{StatusCode: 502}), ErrorTypeAPI, 502},
		{"transport", &url.Error{Op: "Post", URL: "http://x", Err: io.ErrUnexpectedEOF}, ErrorTypeAPI, 0},
		{"deadline", context.DeadlineExceeded, ErrorTypeAPI, 0},
		{"anything else", errors.New("boom"), ErrorTypeUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError("en", "Test", tt.err)
			apiErr := assertAPIError(t, err, tt.wantType, tt.wantStatus)
			if !errors.Is(err, tt.err) && !errors.Is(apiErr.Err, tt.err) {
				t.Error("original error must stay reachable through Unwrap")
			}
		})
	}
}

func TestWrapErrorPassesThroughAIAPIError(t *testing.T) {
	orig := NewConfigError("en", "custom message")
	if got := wrapError("en", "Test", orig); got != orig {
		t.Errorf("expected same *AIAPIError, got %v", got)
	}
	if wrapError("en", "Test", nil) != nil {
		t.Error("nil must stay nil")
	}
}

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":{"message":"bad key"}}`, "bad key"},
		{`{"error":"quota"}`, "quota"},
		{`{"message":"top level"}`, "top level"},
		{"plain text\n", "plain text"},
	}

	for _, tt := range tests {
		if got := extractErrorMessage(tt.body); got != tt.want {
			t.Errorf("extractErrorMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestRandomQuestionError(t *testing.T) {
	cause := errors.New("provider down")
	err := NewRandomQuestionError("fr", cause)

	if err.Type != ErrorTypeRandomQuestion {
		t.Errorf("unexpected type %s", err.Type)
	}
	if err.Message != "Impossible de générer une question aléatoire" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("cause must be wrapped")
	}
}
