package marketcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysToExpiryIgnoresClockTime(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 15, 45, 12, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   int
	}{
		{name: "same day later", expiry: time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC), want: 0},
		{name: "same day earlier", expiry: time.Date(2026, 8, 28, 1, 0, 0, 0, time.UTC), want: 0},
		{name: "tomorrow", expiry: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), want: 1},
		{name: "yesterday", expiry: time.Date(2026, 8, 27, 23, 59, 0, 0, time.UTC), want: -1},
		{name: "thirty days out", expiry: time.Date(2026, 9, 27, 9, 30, 0, 0, time.UTC), want: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysToExpiry(asOf, tt.expiry))
		})
	}
}

func TestYearFraction(t *testing.T) {
	asOf := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.0, YearFraction(asOf, asOf.AddDate(1, 0, 0)), 1e-9)
	assert.InDelta(t, 73.0/365.0, YearFraction(asOf, asOf.AddDate(0, 0, 73)), 1e-9)
	assert.Equal(t, 0.0, YearFraction(asOf, asOf))
}

func TestNextMonthlyExpiration(t *testing.T) {
	tests := []struct {
		name string
		asOf time.Time
		want time.Time
	}{
		{
			name: "mid month before third friday",
			asOf: time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "after third friday rolls to next month",
			asOf: time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "on expiration day rolls forward",
			asOf: time.Date(2026, 9, 18, 10, 0, 0, 0, time.UTC),
			want: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "december rolls into january",
			asOf: time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC),
			want: time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMonthlyExpiration(tt.asOf))
		})
	}
}
