package rfq

// ItemStatus records the outcome of the secondary verification pass.
//
// The status is only ever set when an item's rule confidence score fell in
// the verification band; accepted and sub-floor items keep StatusUnset.
type ItemStatus string

const (
	// StatusUnset means no verifier pass ran for this item.
	StatusUnset ItemStatus = ""
	// StatusVerifiedCorrect means the verifier confirmed the original values.
	StatusVerifiedCorrect ItemStatus = "verified_correct"
	// StatusAutoCorrected means the verifier proposed a correction that was
	// accepted and applied.
	StatusAutoCorrected ItemStatus = "auto_corrected_by_verifier"
	// StatusFlagged means the verifier could not resolve the item; original
	// values are retained for manual review.
	StatusFlagged ItemStatus = "flagged_by_verifier"
)

// Terminal reports whether s is a terminal verification outcome.
func (s ItemStatus) Terminal() bool {
	switch s {
	case StatusVerifiedCorrect, StatusAutoCorrected, StatusFlagged:
		return true
	}
	return false
}
