package types

import "fmt"

// DataFinality represents the finality tier of data delivered by the provider.
type DataFinality string

const (
	// FinalityPending is data from the pending block (no finality guarantees)
	FinalityPending DataFinality = "pending"

	// FinalityAccepted is data accepted on L2 but not yet settled on L1
	FinalityAccepted DataFinality = "accepted"

	// FinalityFinalized is data settled on L1 (highest level of finality)
	FinalityFinalized DataFinality = "finalized"
)

// String returns the string representation of DataFinality.
func (f DataFinality) String() string {
	return string(f)
}

// IsValid checks if the DataFinality value is valid.
func (f DataFinality) IsValid() bool {
	switch f {
	case FinalityPending, FinalityAccepted, FinalityFinalized:
		return true
	default:
		return false
	}
}

// rank orders finality tiers from weakest to strongest. Unknown values rank lowest.
func (f DataFinality) rank() int {
	switch f {
	case FinalityPending:
		return 1
	case FinalityAccepted:
		return 2 //nolint:mnd
	case FinalityFinalized:
		return 3 //nolint:mnd
	default:
		return 0
	}
}

// AtLeast reports whether f is as strong as or stronger than other.
func (f DataFinality) AtLeast(other DataFinality) bool {
	return f.rank() >= other.rank()
}

// ParseDataFinality parses a string into a DataFinality type.
func ParseDataFinality(s string) (DataFinality, error) {
	f := DataFinality(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid data finality: %s (must be one of: pending, accepted, finalized)", s)
	}
	return f, nil
}
