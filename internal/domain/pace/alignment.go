package pace

import (
	"time"
)

// AlignmentStatus says where the shadow stands against its own plan.
type AlignmentStatus string

const (
	AlignmentAhead  AlignmentStatus = "ahead"
	AlignmentBehind AlignmentStatus = "behind"
	AlignmentTied   AlignmentStatus = "tied"
)

// Classify compares the completion instant to the planned window.
// Both window ends are inclusive: completing exactly at start or end is tied.
func Classify(now, plannedStart, plannedEnd time.Time) AlignmentStatus {
	switch {
	case now.Before(plannedStart):
		return AlignmentAhead
	case now.After(plannedEnd):
		return AlignmentBehind
	default:
		return AlignmentTied
	}
}

// Lead is shadow progress minus user progress. Positive means the shadow leads.
func Lead(shadowDistance, userDistance float64) float64 {
	return shadowDistance - userDistance
}

// LeadBand buckets a lead for message tone.
type LeadBand int

const (
	BandClose LeadBand = iota
	BandShadowAhead
	BandUserAhead
)

// LeadBandThreshold is the strict bound of the close band.
const LeadBandThreshold = 2.0

// Band returns the tone bucket: above +2 the shadow pulls away, below -2
// the user does, anything else is a close race.
func Band(lead float64) LeadBand {
	switch {
	case lead > LeadBandThreshold:
		return BandShadowAhead
	case lead < -LeadBandThreshold:
		return BandUserAhead
	default:
		return BandClose
	}
}

func (b LeadBand) String() string {
	switch b {
	case BandShadowAhead:
		return "shadow_ahead"
	case BandUserAhead:
		return "user_ahead"
	default:
		return "close"
	}
}
