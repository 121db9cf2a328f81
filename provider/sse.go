package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxSSELineSize bounds a single SSE line; long completions can exceed the
// 64 KiB bufio default.
const maxSSELineSize = 1 << 20

// maxErrorBodySize caps how much of an error response body is kept.
const maxErrorBodySize = 64 << 10

// sseScanner reads the data payloads of a Server-Sent Events stream.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &sseScanner{scanner: s}
}

// Next returns the next data payload. Consecutive data lines of one event are
// joined with newlines; comments and other fields are skipped. io.EOF is
// returned at the end of the stream or on the [DONE] sentinel.
func (s *sseScanner) Next() (string, error) {
	var data []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if len(data) > 0 {
				return strings.Join(data, "\n"), nil
			}
			continue
		}

		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return "", io.EOF
		}
		data = append(data, payload)
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}
	if len(data) > 0 {
		return strings.Join(data, "\n"), nil
	}
	return "", io.EOF
}

// doJSON sends a JSON request and returns the response with its body open.
// Non-2xx responses are drained, closed and returned as *httpStatusError.
func doJSON(ctx context.Context, client *http.Client, method, url string, header http.Header, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", redactError(err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, redactError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}
	return resp, nil
}

// decodeJSON sends a request and decodes a 2xx JSON response into out.
func decodeJSON(ctx context.Context, client *http.Client, method, url string, header http.Header, body, out any) error {
	resp, err := doJSON(ctx, client, method, url, header, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

// readSSE feeds every SSE payload of resp to handle until the stream ends.
func readSSE(resp *http.Response, handle func(payload string) error) error {
	defer resp.Body.Close()

	scanner := newSSEScanner(resp.Body)
	for {
		payload, err := scanner.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := handle(payload); err != nil {
			return err
		}
	}
}
