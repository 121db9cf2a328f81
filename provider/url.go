package provider

import (
	"errors"
	"net/url"
	"strings"
)

// secretParams are query parameters that carry credentials.
var secretParams = []string{"key", "api_key"}

// BuildAPIURL joins base and endpoint with exactly one slash. When base
// already ends in /v1 and endpoint starts with v1/, the duplicate segment is
// dropped so "http://host/v1" + "v1/chat/completions" stays valid.
func BuildAPIURL(base, endpoint string) string {
	base = strings.TrimRight(base, "/")
	endpoint = strings.TrimLeft(endpoint, "/")

	if strings.HasSuffix(base, "/v1") && (endpoint == "v1" || strings.HasPrefix(endpoint, "v1/")) {
		endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "v1"), "/")
	}

	if endpoint == "" {
		return base
	}
	return base + "/" + endpoint
}

// redactURL masks credential query parameters in raw.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for _, name := range secretParams {
		if q.Has(name) {
			q.Set(name, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// redactError masks credentials in the URL of a *url.Error inside err, so
// the message is safe to show or log.
func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactURL(urlErr.URL)
	}
	return err
}
