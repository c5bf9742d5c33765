package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultProfile(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Alex", p.FirstName())
	assert.NotEmpty(t, p.Skills)
	assert.NotEmpty(t, p.Projects)
	assert.Contains(t, p.Greeting(), "Alex's personal AI assistant")
}

func TestContextRendersSections(t *testing.T) {
	p, err := Parse([]byte(`
owner:
  name: Sam Lee
  headline: backend engineer
contact:
  email: sam@example.com
skills:
  - group: Languages
    items: [Go, SQL]
experience:
  - role: Intern
    company: Acme
    period: 2024
    highlights: [Built things]
projects:
  - title: Folio
    description: Portfolio assistant
    tools: [Go]
`))
	require.NoError(t, err)

	ctx := p.Context()
	for _, want := range []string{
		"Sam Lee is a backend engineer.",
		"- Email: sam@example.com",
		"- Languages: Go, SQL",
		"- Intern at Acme (2024):",
		"  - Built things",
		"1. Folio:",
		"   - Tech Stack: Go",
	} {
		assert.Contains(t, ctx, want)
	}
	assert.NotContains(t, ctx, "Phone")
	assert.NotContains(t, ctx, "Education")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("owner:\n  name: Kim\n"), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Kim", p.Owner.Name)
}

func TestParseRequiresOwner(t *testing.T) {
	_, err := Parse([]byte("contact:\n  email: x@example.com\n"))
	assert.ErrorIs(t, err, ErrMissingOwner)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
