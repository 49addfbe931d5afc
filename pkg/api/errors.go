package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for API failures. The transport classifies every non-2xx
// response into one of these categories; callers match with errors.Is and
// never inspect message text.
var (
	// ErrNotFound indicates the requested resource does not exist. Callers
	// commonly treat this as a valid "false" result rather than a failure.
	ErrNotFound = errors.New("resource not found")
	// ErrAuthenticationFailed indicates the request was rejected for missing
	// or insufficient credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrRateLimitExceeded indicates the API rate limit was exhausted. The
	// wrapping *Error carries the reset time.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrValidationFailed indicates the server rejected the request body.
	ErrValidationFailed = errors.New("validation failed")
	// ErrAPIDisabled is returned for every request when API access has been
	// switched off via TAPBUMP_NO_API.
	ErrAPIDisabled = errors.New("API calls are disabled")

	errURLNotAbsolute = errors.New("request URL must be absolute")
)

// Kind is the structured category of an API error. Classification never
// depends on matching human-readable message text.
type Kind int

const (
	// KindGeneric covers any non-2xx response not otherwise classified.
	KindGeneric Kind = iota
	// KindNotFound corresponds to HTTP 404.
	KindNotFound
	// KindAuthentication corresponds to HTTP 401 and non-rate-limit 403.
	KindAuthentication
	// KindRateLimit corresponds to HTTP 403 with exhausted rate-limit headers.
	KindRateLimit
	// KindValidation corresponds to HTTP 422.
	KindValidation
)

// FieldError is one entry of a 422 response's error list, preserved verbatim.
type FieldError struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Error is a classified API failure. Resource names the offending resource
// (repo, PR number, asset) so user-visible failures stay debuggable.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Resource   string

	// Populated for KindAuthentication when the caller declared scopes.
	RequiredScopes []string
	GrantedScopes  []string

	// Populated for KindRateLimit.
	Reset time.Time

	// Populated for KindValidation.
	Fields []FieldError
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindNotFound:
		b.WriteString("not found")
	case KindAuthentication:
		b.WriteString("authentication failed")
	case KindRateLimit:
		b.WriteString("rate limit exceeded")
	case KindValidation:
		b.WriteString("validation failed")
	case KindGeneric:
		b.WriteString("API request failed")
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, " (%s)", e.Resource)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " [HTTP %d]", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Kind == KindAuthentication && len(e.RequiredScopes) > 0 {
		fmt.Fprintf(&b, " (requires scopes %s; token grants %s)",
			strings.Join(e.RequiredScopes, ","), formatScopes(e.GrantedScopes))
	}
	if e.Kind == KindRateLimit && !e.Reset.IsZero() {
		fmt.Fprintf(&b, " (resets at %s)", e.Reset.Format(time.RFC3339))
	}
	for _, f := range e.Fields {
		fmt.Fprintf(&b, "; %s.%s: %s", f.Resource, f.Field, f.Code)
	}
	return b.String()
}

// Is maps each Kind to its sentinel so callers can use errors.Is without
// depending on the concrete type.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrAuthenticationFailed:
		return e.Kind == KindAuthentication
	case ErrRateLimitExceeded:
		return e.Kind == KindRateLimit
	case ErrValidationFailed:
		return e.Kind == KindValidation
	}
	return false
}

func formatScopes(scopes []string) string {
	if len(scopes) == 0 {
		return "none"
	}
	return strings.Join(scopes, ",")
}

// apiMessage is the envelope GitHub wraps error responses in.
type apiMessage struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

const bodyExcerptLimit = 200

// classify turns a non-2xx response into a *Error. It is a pure function of
// response metadata; it never retries and never matches on message substrings.
func classify(resp *http.Response, body []byte, resource string, requiredScopes []string) *Error {
	var msg apiMessage
	_ = json.Unmarshal(body, &msg)

	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Message:    msg.Message,
		Resource:   resource,
	}
	if apiErr.Message == "" {
		apiErr.Message = excerpt(body)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case http.StatusUnauthorized:
		apiErr.Kind = KindAuthentication
		apiErr.RequiredScopes = requiredScopes
	case http.StatusForbidden:
		if reset, limited := rateLimitState(resp.Header); limited {
			apiErr.Kind = KindRateLimit
			apiErr.Reset = reset
		} else {
			apiErr.Kind = KindAuthentication
			apiErr.RequiredScopes = requiredScopes
			apiErr.GrantedScopes = grantedScopes(resp.Header)
		}
	case http.StatusUnprocessableEntity:
		apiErr.Kind = KindValidation
		apiErr.Fields = msg.Errors
	default:
		apiErr.Kind = KindGeneric
	}

	return apiErr
}

// rateLimitState reports whether the response's rate-limit headers indicate
// an exhausted quota, and the reset time if so.
func rateLimitState(h http.Header) (time.Time, bool) {
	remaining := h.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(remaining)
	if err != nil || n > 0 {
		return time.Time{}, false
	}

	var reset time.Time
	if raw := h.Get("X-RateLimit-Reset"); raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			reset = time.Unix(unix, 0)
		}
	}
	return reset, true
}

// grantedScopes parses the X-OAuth-Scopes header into a scope list.
func grantedScopes(h http.Header) []string {
	raw := h.Get("X-OAuth-Scopes")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > bodyExcerptLimit {
		return s[:bodyExcerptLimit] + "..."
	}
	return s
}
