package resilience

import (
	"errors"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want FailureKind
	}{
		{404, KindNotFound},
		{401, KindUnauthorized},
		{403, KindUnauthorized},
		{429, KindRateLimited},
		{500, KindTransient},
		{502, KindTransient},
		{418, KindTransient},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyHTTPStatus(tt.code), "status %d", tt.code)
	}
}

func TestKindOfUnwrapsChains(t *testing.T) {
	t.Parallel()

	inner := NewStageError(KindRateLimited, "repository", errors.New("quota exhausted"))
	wrapped := eris.Wrap(inner, "fetch repo")

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindRateLimited, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTerminal(NewStageError(KindNotFound, "repository", nil)))
	assert.True(t, IsTerminal(NewStageError(KindUnauthorized, "repository", nil)))
	assert.True(t, IsTerminal(NewStageError(KindRateLimited, "repository", nil)))
	assert.False(t, IsTerminal(NewStageError(KindTransient, "repository", nil)))
	assert.False(t, IsTerminal(errors.New("unclassified")))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient stage error", NewStageError(KindTransient, "technology", errors.New("503")), true},
		{"terminal stage error", NewStageError(KindNotFound, "technology", nil), false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"timeout message", errors.New("Get \"https://x\": i/o timeout"), true},
		{"dns message", errors.New("dial tcp: lookup x: no such host"), true},
		{"unrelated error", errors.New("parse failure"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestStageErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewStageError(KindNotFound, "repository", errors.New("404"))
	assert.Equal(t, "repository: not_found: 404", err.Error())
	assert.True(t, IsNotFound(err))
}
