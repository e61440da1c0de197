package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "tikscraper/pkg/errors"
)

func TestResolveCutoff(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		fromDate string
		days     int
		want     time.Time
	}{
		{"days window", "", 14, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"zero days is today", "", 0, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"from date wins", "2024-02-10", 14, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCutoff(tt.fromDate, tt.days, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestResolveCutoffErrors(t *testing.T) {
	_, err := ResolveCutoff("15/03/2024", 0, time.Now())
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))

	_, err = ResolveCutoff("", -1, time.Now())
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfig))
}
