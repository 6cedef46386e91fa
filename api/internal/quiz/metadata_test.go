package quiz

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata_List(t *testing.T) {
	raw := `[{"title":" NEET Mock 4 ","description":"Physics: Optics","quiz_open":"1700000000","quiz_close":1700003600,"show_results":null}]`
	m, err := ParseMetadata(json.RawMessage(raw))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "NEET Mock 4", m.Title)
	assert.Equal(t, "Physics: Optics", m.Description)
	assert.EqualValues(t, 1700000000, m.QuizOpen)
	assert.EqualValues(t, 1700003600, m.QuizClose)
	assert.Zero(t, m.ShowResults)
	assert.Equal(t, "NEET Mock 4", m.TitleOr("1"))
}

func TestParseMetadata_EmptyAndObject(t *testing.T) {
	for _, raw := range []string{`[]`, `null`, ``} {
		m, err := ParseMetadata(json.RawMessage(raw))
		assert.NoError(t, err)
		assert.Nil(t, m)
		assert.Equal(t, "Test 55", m.TitleOr("55"))
	}

	m, err := ParseMetadata(json.RawMessage(`{"title":"", "syllabus":"Chemistry: Mole concept"}`))
	require.NoError(t, err)
	assert.Equal(t, "Test 9", m.TitleOr("9"))
	assert.Equal(t, "Chemistry: Mole concept", m.Syllabus)

	_, err = ParseMetadata(json.RawMessage(`"nope"`))
	assert.Error(t, err)
}

func TestFormatEpoch(t *testing.T) {
	assert.Equal(t, "Not set", FormatEpoch(0, nil))
	assert.Equal(t, "14 Nov 2023, 10:13 PM", FormatEpoch(1700000000, time.UTC))
}
