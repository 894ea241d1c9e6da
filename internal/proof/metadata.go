package proof

import "time"

// MetadataCommitment hashes the canonical sorted-key JSON encoding of the
// declared listing metadata. The metadata itself is public; the commitment
// only makes later tampering with the claim detectable.
func MetadataCommitment(contentSize uint64, category string, freshnessAt time.Time, qualityScore float64) (string, error) {
	return CanonicalHash(map[string]any{
		"category":      category,
		"content_size":  contentSize,
		"freshness_at":  freshnessAt.UTC().Format(time.RFC3339),
		"quality_score": qualityScore,
	})
}
