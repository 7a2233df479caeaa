package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Drew Bowman", c.Name)
	require.NotEmpty(t, c.Cards)
	g, err := c.Gallery("budgeting")
	require.NoError(t, err)
	assert.Len(t, g.Items, 3)

	var ids []string
	for _, card := range c.Sections() {
		ids = append(ids, NavID(card.Title))
	}
	assert.Equal(t, []string{"education", "experience", "projects", "skills", "honors-and-awards"}, ids)
}

func TestParse_UnknownGallery(t *testing.T) {
	_, err := Parse([]byte("cards:\n  - title: X\n    gallery: nope\n"))
	assert.ErrorIs(t, err, ErrUnknownGallery)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Someone\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Someone", c.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSplitSummary(t *testing.T) {
	lead, detail, ok := SplitSummary("Software Engineer, Richmond, VA - Costar Group")
	assert.True(t, ok)
	assert.Equal(t, "Software Engineer, Richmond, VA", lead)
	assert.Equal(t, "Costar Group", detail)

	lead, _, ok = SplitSummary("Custom Budgeting Dashboard")
	assert.False(t, ok)
	assert.Equal(t, "Custom Budgeting Dashboard", lead)
}

func TestSkillIcon(t *testing.T) {
	assert.Equal(t, "/skill-3", SkillIcon(3))
}
