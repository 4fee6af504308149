package domain

import (
	"encoding/json"
	"fmt"
)

// Recommendation the position an advice suggests to take.
type Recommendation int

const (
	// RecommendationNone neutral (soft) advice, no new position.
	RecommendationNone Recommendation = iota
	RecommendationLong
	RecommendationShort
)

// recommendation string constants to avoid magic strings
const (
	recommendationStringNone  = ""
	recommendationStringLong  = "long"
	recommendationStringShort = "short"
)

// String returns the string representation of the recommendation
func (r Recommendation) String() string {
	switch r {
	case RecommendationLong:
		return recommendationStringLong
	case RecommendationShort:
		return recommendationStringShort
	default:
		return recommendationStringNone
	}
}

// MarshalJSON encodes the recommendation as a string.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes the recommendation from a string.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case recommendationStringNone:
		*r = RecommendationNone
	case recommendationStringLong:
		*r = RecommendationLong
	case recommendationStringShort:
		*r = RecommendationShort
	default:
		return fmt.Errorf("invalid recommendation: %s", s)
	}
	return nil
}
