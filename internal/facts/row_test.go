package facts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowInt64(t *testing.T) {
	row := Row{"a": int64(3), "b": 4.0, "c": "12", "d": "7.000", "e": nil, "f": 1.5, "g": "x"}

	for col, want := range map[string]int64{"a": 3, "b": 4, "c": 12, "d": 7, "e": 0} {
		got, err := row.Int64(col)
		require.NoError(t, err, col)
		assert.Equal(t, want, got, col)
	}

	_, err := row.Int64("f")
	assert.ErrorIs(t, err, ErrColumnType)
	_, err = row.Int64("g")
	assert.ErrorIs(t, err, ErrColumnType)
	_, err = row.Int64("missing")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestRowFloat64(t *testing.T) {
	row := Row{"a": int64(3), "b": 2.5, "c": "3600.50", "d": nil, "e": true}

	for col, want := range map[string]float64{"a": 3, "b": 2.5, "c": 3600.5, "d": 0} {
		got, err := row.Float64(col)
		require.NoError(t, err, col)
		assert.Equal(t, want, got, col)
	}

	_, err := row.Float64("e")
	assert.ErrorIs(t, err, ErrColumnType)
}

func TestRowDate(t *testing.T) {
	want := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	row := Row{
		"date":      "2024-05-17",
		"timestamp": time.Date(2024, 5, 17, 23, 59, 0, 0, time.FixedZone("PDT", -7*3600)),
		"rfc3339":   "2024-05-17T08:30:00Z",
		"null":      nil,
		"bad":       "yesterday",
	}

	for _, col := range []string{"date", "timestamp", "rfc3339"} {
		got, err := row.Date(col)
		require.NoError(t, err, col)
		require.NotNil(t, got, col)
		assert.Equal(t, want, *got, col)
	}

	got, err := row.Date("null")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = row.Date("bad")
	assert.ErrorIs(t, err, ErrColumnType)
}

func TestRowStrings(t *testing.T) {
	row := Row{"email": "a@example.com", "count": int64(2), "day": time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "none": nil}

	s, err := row.String("email")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", s)

	s, err = row.String("count")
	require.NoError(t, err)
	assert.Equal(t, "2", s)

	s, err = row.String("day")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", s)

	s, err = row.String("none")
	require.NoError(t, err)
	assert.Equal(t, "", s)

	_, err = row.String("missing")
	assert.ErrorIs(t, err, ErrMissingColumn)
}
