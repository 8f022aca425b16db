package pace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	start := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	tests := []struct {
		name string
		now  time.Time
		want AlignmentStatus
	}{
		{"before start", start.Add(-time.Nanosecond), AlignmentAhead},
		{"exactly start", start, AlignmentTied},
		{"inside", start.Add(10 * time.Minute), AlignmentTied},
		{"exactly end", end, AlignmentTied},
		{"after end", end.Add(time.Nanosecond), AlignmentBehind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.now, start, end))
		})
	}
}

func TestClassify_ZoneIndependent(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	start := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	assert.Equal(t, AlignmentTied, Classify(start.In(kolkata), start, end))
}

func TestLeadAndBand(t *testing.T) {
	assert.Equal(t, 2.0, Lead(5, 3))
	assert.Equal(t, -1.0, Lead(2, 3))

	tests := []struct {
		lead float64
		want LeadBand
	}{
		{3.4, BandShadowAhead},
		{2.01, BandShadowAhead},
		{2, BandClose},
		{0, BandClose},
		{-0.5, BandClose},
		{-2, BandClose},
		{-2.01, BandUserAhead},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Band(tt.lead), "lead %v", tt.lead)
	}
	assert.Equal(t, "shadow_ahead", BandShadowAhead.String())
	assert.Equal(t, "close", BandClose.String())
}
