package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subject Subject
		wantErr string
	}{
		{"github only", Subject{GitHub: "vercel/next.js"}, ""},
		{"website only", Subject{Website: "https://example.com"}, ""},
		{"both set", Subject{GitHub: "a/b", Website: "example.com"}, ""},
		{"empty subject", Subject{}, "github or website is required"},
		{"github missing slash", Subject{GitHub: "vercel"}, "must be owner/name"},
		{"github empty owner", Subject{GitHub: "/next.js"}, "must be owner/name"},
		{"github empty name", Subject{GitHub: "vercel/"}, "must be owner/name"},
		{"github extra segment", Subject{GitHub: "a/b/c"}, "must be owner/name"},
		{"website with whitespace", Subject{Website: "exa mple.com"}, "must not contain whitespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.subject.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://www.Example.com/pricing", "example.com"},
		{"http://example.com", "example.com"},
		{"www.example.com", "example.com"},
		{"example.com/about/team", "example.com"},
		{"  Example.COM  ", "example.com"},
		{"sub.example.com", "sub.example.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDomain(tt.in), tt.in)
	}
}

func TestCacheIdentity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "vercel/next.js", Subject{GitHub: "vercel/next.js", Website: "https://vercel.com"}.CacheIdentity())
	assert.Equal(t, "vercel.com", Subject{Website: "https://www.vercel.com/"}.CacheIdentity())
}

func TestRepoParts(t *testing.T) {
	t.Parallel()

	owner, name, err := Subject{GitHub: "vercel/next.js"}.RepoParts()
	require.NoError(t, err)
	assert.Equal(t, "vercel", owner)
	assert.Equal(t, "next.js", name)

	_, _, err = Subject{GitHub: "malformed"}.RepoParts()
	assert.Error(t, err)
}
