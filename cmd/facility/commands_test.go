package facility

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	got, err := parseTime("1700000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got.Unix())

	got, err = parseTime("2024-03-01 09:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local), got)

	got, err = parseTime("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), got)

	_, err = parseTime("tomorrow")
	assert.Error(t, err)
}

func TestParseMinutes(t *testing.T) {
	d, err := parseMinutes("45")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, d)

	d, err = parseMinutes("-1h30m")
	require.NoError(t, err)
	assert.Equal(t, -90*time.Minute, d)

	_, err = parseMinutes("soon")
	assert.Error(t, err)
}

func TestParseConfirmationID(t *testing.T) {
	id, err := parseConfirmationID("42")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), id)

	_, err = parseConfirmationID("-1")
	assert.Error(t, err)
	_, err = parseConfirmationID("4294967296")
	assert.Error(t, err)
}
