package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile LeadProfile
		want    string
	}{
		{
			"company name wins",
			LeadProfile{
				Company:    &CompanyProfile{Name: "Acme Corp"},
				Repository: &RepositoryProfile{Name: "acme"},
			},
			"Acme Corp",
		},
		{
			"repo name fallback",
			LeadProfile{Repository: &RepositoryProfile{Name: "acme"}},
			"acme",
		},
		{
			"empty company falls through",
			LeadProfile{
				Company:    &CompanyProfile{},
				Repository: &RepositoryProfile{Name: "acme"},
			},
			"acme",
		},
		{"nothing available", LeadProfile{}, "Unknown Lead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.DisplayName())
		})
	}
}

func TestDomainKey(t *testing.T) {
	t.Parallel()

	withCompany := LeadProfile{
		Company:  &CompanyProfile{Domain: "acme.dev"},
		Metadata: LeadMetadata{URL: "https://other.com"},
	}
	assert.Equal(t, "acme.dev", withCompany.DomainKey())

	fromMetadata := LeadProfile{Metadata: LeadMetadata{URL: "https://www.acme.dev/pricing"}}
	assert.Equal(t, "acme.dev", fromMetadata.DomainKey())

	assert.Equal(t, "", (&LeadProfile{}).DomainKey())
}

func TestSocialProofEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, SocialProof{}.Empty())
	assert.False(t, SocialProof{Customers: "10,000"}.Empty())
	assert.False(t, SocialProof{Testimonials: 3}.Empty())
}

func TestTechnologyProfileCategory(t *testing.T) {
	t.Parallel()

	var nilProfile *TechnologyProfile
	assert.Nil(t, nilProfile.Category(CategoryFrontend))

	profile := &TechnologyProfile{Detections: map[string][]Detection{
		CategoryFrontend: {{Name: "React", Confidence: 0.9}},
	}}
	assert.Len(t, profile.Category(CategoryFrontend), 1)
	assert.Nil(t, profile.Category(CategoryBackend))
}
