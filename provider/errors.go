package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"askai/i18n"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// AIAPIError types.
const (
	ErrorTypeConfig         = "config_error"
	ErrorTypeAuth           = "auth_error"
	ErrorTypeAPI            = "api_error"
	ErrorTypeUnknown        = "unknown_error"
	ErrorTypeRandomQuestion = "random_question_error"
)

// AIAPIError is returned by every provider operation. Message is translated
// and safe to show to users; Detail carries the technical cause.
type AIAPIError struct {
	Message    string
	StatusCode int
	Type       string
	Detail     string
	Err        error
}

func (e *AIAPIError) Error() string {
	return e.Message
}

func (e *AIAPIError) Unwrap() error {
	return e.Err
}

// NewConfigError builds a config_error with the translated message id.
func NewConfigError(lang, msgID string, args ...any) *AIAPIError {
	msg := i18n.T(lang, msgID, args...)
	return &AIAPIError{Message: msg, Type: ErrorTypeConfig, Detail: msg}
}

// NewRandomQuestionError wraps a failure to produce a random question.
func NewRandomQuestionError(lang string, err error) *AIAPIError {
	e := &AIAPIError{
		Message: i18n.T(lang, i18n.ErrRandomQuestion),
		Type:    ErrorTypeRandomQuestion,
		Err:     err,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// NewEmptyAnswerError reports a successful request that produced no text.
func NewEmptyAnswerError(lang, name string) *AIAPIError {
	msg := i18n.T(lang, i18n.ErrEmptyAnswer, name)
	return &AIAPIError{Message: msg, Type: ErrorTypeAPI, Detail: msg}
}

// httpStatusError is produced by the raw-HTTP adapters for non-2xx responses.
type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// newStatusError maps an HTTP status to auth_error (401/403) or api_error.
func newStatusError(lang, name string, status int, detail string, cause error) *AIAPIError {
	e := &AIAPIError{
		StatusCode: status,
		Detail:     detail,
		Err:        cause,
	}
	if status == 401 || status == 403 {
		e.Type = ErrorTypeAuth
		e.Message = i18n.T(lang, i18n.ErrAuth, name)
	} else {
		e.Type = ErrorTypeAPI
		e.Message = i18n.T(lang, i18n.ErrAPI, name, status)
	}
	return e
}

func newTimeoutError(lang, name string, cause error) *AIAPIError {
	e := &AIAPIError{
		Message: i18n.T(lang, i18n.ErrTimeout, name),
		Type:    ErrorTypeAPI,
		Err:     cause,
	}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// wrapError converts any error coming out of an adapter into *AIAPIError.
// Errors that already are *AIAPIError pass through unchanged.
func wrapError(lang, name string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *AIAPIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return newStatusError(lang, name, statusErr.StatusCode, extractErrorMessage(statusErr.Body), err)
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return newStatusError(lang, name, openaiErr.StatusCode, err.Error(), err)
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return newStatusError(lang, name, anthropicErr.StatusCode, err.Error(), err)
	}

	var ollamaErr api.StatusError
	if errors.As(err, &ollamaErr) {
		return newStatusError(lang, name, ollamaErr.StatusCode, ollamaErr.ErrorMessage, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newTimeoutError(lang, name, err)
	}

	if isTransportError(err) {
		return &AIAPIError{
			Message: i18n.T(lang, i18n.ErrNetwork, name),
			Type:    ErrorTypeAPI,
			Detail:  err.Error(),
			Err:     err,
		}
	}

	return &AIAPIError{
		Message: i18n.T(lang, i18n.ErrUnknown, name),
		Type:    ErrorTypeUnknown,
		Detail:  err.Error(),
		Err:     err,
	}
}

// isTransportError reports whether err happened below HTTP: the request
// never produced a status code.
func isTransportError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return false
	}

	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// extractErrorMessage pulls the human-readable message out of a JSON error
// body ({"error":{"message":...}} or {"error":"..."}), else returns the body.
func extractErrorMessage(body string) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return strings.TrimSpace(body)
	}

	if len(envelope.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
		var plain string
		if err := json.Unmarshal(envelope.Error, &plain); err == nil && plain != "" {
			return plain
		}
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return strings.TrimSpace(body)
}
