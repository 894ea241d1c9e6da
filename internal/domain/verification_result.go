package domain

// CheckResult is one evaluated predicate of a verify-listing request.
// Predicate errors (for example a missing proof for a requested check) are
// recorded as a failed check, never raised as call errors.
type CheckResult struct {
	Passed  bool     `json:"passed"`
	Detail  string   `json:"detail,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// VerificationResult is the structured outcome of verifying a buyer's
// requested claims against a listing's stored proofs. Verified is true only
// when every requested check passed; with nothing requested it stays false.
type VerificationResult struct {
	ListingID           string                 `json:"listing_id"`
	Verified            bool                   `json:"verified"`
	Checks              map[string]CheckResult `json:"checks"`
	ProofTypesAvailable []ProofType            `json:"proof_types_available"`
	Error               string                 `json:"error,omitempty"`
}
