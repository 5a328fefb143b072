package sections

import (
	"testing"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"summary", Summary},
		{"Weak Verbs", WeakVerbs},
		{"weak-verbs", WeakVerbs},
		{"  ATS_KEYWORDS ", ATSKeywords},
		{"achievements_vs_responsibilities", AchievementsVsDuties},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("magic_write")
	require.Error(t, err)

	var unknown *UnknownSectionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "magic_write", unknown.Name)
	assert.Equal(t, apperr.CategoryUnknownSection, apperr.CategoryOf(err))
}

func TestParseList(t *testing.T) {
	kinds, err := ParseList([]string{"dates", "", "Dates", "teamwork"})
	require.NoError(t, err)
	assert.Equal(t, []Kind{Dates, Teamwork}, kinds)

	_, err = ParseList([]string{"dates", "bogus"})
	assert.Error(t, err)
}

func TestAll(t *testing.T) {
	kinds := All()
	assert.Len(t, kinds, 15)

	seen := map[Kind]bool{}
	for _, k := range kinds {
		assert.True(t, k.Valid())
		assert.NotEqual(t, string(k), k.Title(), "every kind has a title")
		assert.False(t, seen[k], "duplicate kind %s", k)
		seen[k] = true
	}

	kinds[0] = "mutated"
	assert.Equal(t, Summary, All()[0], "All returns a copy")
}
