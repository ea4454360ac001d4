// ABOUTME: Tests for category parsing, page path mapping and route metadata

package agentapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Sports ")
	require.NoError(t, err)
	assert.Equal(t, Sports, c)

	_, err = ParseCategory("weather")
	assert.Error(t, err)
}

func TestFromPath(t *testing.T) {
	assert.Equal(t, General, FromPath("/"))
	assert.Equal(t, Sports, FromPath("/sports"))
	assert.Equal(t, Sports, FromPath("/sports/send"))
	assert.Equal(t, Finance, FromPath("/finance"))
	assert.Equal(t, General, FromPath("/unknown"))
}

func TestCategoryMetadata(t *testing.T) {
	assert.Equal(t, []Category{General, Sports, Finance}, Categories())

	assert.False(t, General.HasSummary())
	assert.True(t, Sports.HasSummary())
	assert.True(t, Finance.HasSummary())

	assert.Equal(t, "/", General.Path())
	assert.Equal(t, "/finance", Finance.Path())
	assert.Equal(t, "Sports", Sports.Label())
	assert.Equal(t, "any topic", General.Topic())
	assert.False(t, Category("weather").Valid())
}

func TestSourceHost(t *testing.T) {
	assert.Equal(t, "www.espn.com", Source{URL: "https://www.espn.com/nba/story"}.Host())
	assert.Equal(t, "not a url", Source{URL: "not a url"}.Host())
}
