package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Subject identifies the enrichment target. At least one of GitHub
// (an "owner/name" repository full name) or Website (domain or URL)
// must be set. A Subject is immutable once a job is created.
type Subject struct {
	GitHub  string `json:"github,omitempty"`
	Website string `json:"website,omitempty"`
}

// ValidationError reports a malformed subject rejected at submission time,
// before any job is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid subject: " + e.Field + ": " + e.Reason
}

// Validate checks that the subject names at least one target and that the
// GitHub reference, when present, is a well-formed "owner/name" pair.
func (s Subject) Validate() error {
	if s.GitHub == "" && s.Website == "" {
		return &ValidationError{Field: "subject", Reason: "github or website is required"}
	}
	if s.GitHub != "" {
		owner, name, ok := strings.Cut(s.GitHub, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return &ValidationError{Field: "github", Reason: "must be owner/name"}
		}
	}
	if s.Website != "" && strings.ContainsAny(s.Website, " \t\n") {
		return &ValidationError{Field: "website", Reason: "must not contain whitespace"}
	}
	return nil
}

// RepoParts splits the GitHub full name into owner and name.
func (s Subject) RepoParts() (owner, name string, err error) {
	owner, name, ok := strings.Cut(s.GitHub, "/")
	if !ok || owner == "" || name == "" {
		return "", "", eris.Errorf("malformed repository full name %q", s.GitHub)
	}
	return owner, name, nil
}

// NormalizeDomain lowercases a website identifier and strips the scheme,
// "www." prefix, and any path, producing the canonical cache identity for
// a site. GitHub full names are used verbatim as cache identities.
func NormalizeDomain(website string) string {
	d := strings.ToLower(strings.TrimSpace(website))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	return d
}

// CacheIdentity returns the normalized subject identity used as the cache
// key prefix: the repository full name when present, otherwise the
// normalized domain.
func (s Subject) CacheIdentity() string {
	if s.GitHub != "" {
		return s.GitHub
	}
	return NormalizeDomain(s.Website)
}
