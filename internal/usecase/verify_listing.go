package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bazaar/internal/domain"
	"bazaar/internal/proof"
)

const (
	MaxKeywords     = 20
	MaxSchemaFields = 50
)

type VerifyListingRequest struct {
	ListingID    string
	Keywords     []string
	SchemaFields []string
	MinSize      *uint64
	MinQuality   *float64
}

// VerifyListing evaluates a buyer's requested claims against the stored
// proofs before any payment happens. Predicate failures, including a missing
// proof for a requested check, are recorded as failed sub-checks; the call
// itself only errors on malformed requests or storage faults.
type VerifyListing struct {
	Proofs   ProofRepository
	Cache    VerificationCache
	CacheTTL time.Duration
}

func (uc *VerifyListing) Execute(ctx context.Context, req VerifyListingRequest) (*domain.VerificationResult, error) {
	if req.ListingID == "" {
		return nil, domain.ValidationError("listing_id is required")
	}
	if len(req.Keywords) > MaxKeywords {
		return nil, domain.ValidationError(fmt.Sprintf("at most %d keywords per request", MaxKeywords))
	}
	if len(req.SchemaFields) > MaxSchemaFields {
		return nil, domain.ValidationError(fmt.Sprintf("at most %d schema fields per request", MaxSchemaFields))
	}
	if req.MinQuality != nil && (*req.MinQuality < 0 || *req.MinQuality > 1) {
		return nil, domain.ValidationError("min_quality must be within [0,1]")
	}

	cacheKey := uc.cacheKey(req)
	if uc.Cache != nil {
		if cached, ok, err := uc.Cache.Get(ctx, cacheKey); err == nil && ok {
			return cached, nil
		}
	}

	proofs, err := uc.Proofs.ListByListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}

	result := domain.VerificationResult{
		ListingID: req.ListingID,
		Checks:    map[string]domain.CheckResult{},
	}
	if len(proofs) == 0 {
		result.Error = "no proofs found for listing"
		return &result, nil
	}

	byType := make(map[domain.ProofType]domain.Proof, len(proofs))
	for _, p := range proofs {
		byType[p.Type] = p
		result.ProofTypesAvailable = append(result.ProofTypesAvailable, p.Type)
	}

	if len(req.Keywords) > 0 {
		result.Checks["keywords"] = checkKeywords(byType, req.Keywords)
	}
	if len(req.SchemaFields) > 0 {
		result.Checks["schema_fields"] = checkSchemaFields(byType, req.SchemaFields)
	}
	if req.MinSize != nil {
		result.Checks["min_size"] = checkMinSize(byType, *req.MinSize)
	}
	if req.MinQuality != nil {
		result.Checks["min_quality"] = checkMinQuality(byType, *req.MinQuality)
	}

	// Nothing requested means nothing passed: an empty check map never
	// upgrades to verified.
	result.Verified = len(result.Checks) > 0
	for _, check := range result.Checks {
		if !check.Passed {
			result.Verified = false
			break
		}
	}

	if uc.Cache != nil {
		_ = uc.Cache.Put(ctx, cacheKey, result, uc.CacheTTL)
	}
	return &result, nil
}

// BloomCheck is the single-keyword shortcut. Unlike Execute, a missing Bloom
// proof is an explicit error here, never a false negative.
func (uc *VerifyListing) BloomCheck(ctx context.Context, listingID, word string) (bool, error) {
	if listingID == "" {
		return false, domain.ValidationError("listing_id is required")
	}
	if word == "" {
		return false, domain.ValidationError("word is required")
	}
	p, err := uc.Proofs.GetByType(ctx, listingID, domain.ProofBloomFilter)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("%w: listing %s has no bloom_filter proof", domain.ErrNoProofs, listingID)
		}
		return false, err
	}
	if p.Bloom == nil {
		return false, fmt.Errorf("%w: bloom_filter proof has no payload", domain.ErrNoProofs)
	}
	filter, err := proof.ParseBloomHex(p.Bloom.FilterHex)
	if err != nil {
		return false, err
	}
	return filter.Test(word), nil
}

func checkKeywords(byType map[domain.ProofType]domain.Proof, keywords []string) domain.CheckResult {
	p, ok := byType[domain.ProofBloomFilter]
	if !ok || p.Bloom == nil {
		return domain.CheckResult{Detail: "bloom_filter proof not available"}
	}
	filter, err := proof.ParseBloomHex(p.Bloom.FilterHex)
	if err != nil {
		return domain.CheckResult{Detail: "bloom_filter proof is malformed"}
	}
	missing := make([]string, 0)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if !filter.Test(keyword) {
			missing = append(missing, keyword)
		}
	}
	if len(missing) > 0 {
		return domain.CheckResult{
			Detail:  fmt.Sprintf("%d of %d keywords not present", len(missing), len(keywords)),
			Missing: missing,
		}
	}
	return domain.CheckResult{
		Passed: true,
		Detail: fmt.Sprintf("all %d keywords probably present", len(keywords)),
	}
}

func checkSchemaFields(byType map[domain.ProofType]domain.Proof, fields []string) domain.CheckResult {
	p, ok := byType[domain.ProofSchema]
	if !ok || p.Schema == nil {
		return domain.CheckResult{Detail: "schema proof not available"}
	}
	node := p.Schema.Schema
	if node == nil || node.Mode == domain.SchemaModeText || node.Type != "object" {
		// Array and text schemas have no named fields; every requested field
		// is simply absent.
		missing := make([]string, len(fields))
		copy(missing, fields)
		return domain.CheckResult{
			Detail:  fmt.Sprintf("schema is %s, not an object", node.Label()),
			Missing: missing,
		}
	}
	missing := make([]string, 0)
	for _, field := range fields {
		if _, present := node.Fields[field]; !present {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return domain.CheckResult{
			Detail:  fmt.Sprintf("%d of %d fields missing", len(missing), len(fields)),
			Missing: missing,
		}
	}
	return domain.CheckResult{
		Passed: true,
		Detail: fmt.Sprintf("all %d fields present", len(fields)),
	}
}

func checkMinSize(byType map[domain.ProofType]domain.Proof, minSize uint64) domain.CheckResult {
	p, ok := byType[domain.ProofMetadata]
	if !ok || p.Metadata == nil {
		return domain.CheckResult{Detail: "metadata proof not available"}
	}
	if p.Metadata.ContentSize < minSize {
		return domain.CheckResult{
			Detail: fmt.Sprintf("content size %d below requested minimum %d", p.Metadata.ContentSize, minSize),
		}
	}
	return domain.CheckResult{
		Passed: true,
		Detail: fmt.Sprintf("content size %d meets minimum %d", p.Metadata.ContentSize, minSize),
	}
}

func checkMinQuality(byType map[domain.ProofType]domain.Proof, minQuality float64) domain.CheckResult {
	p, ok := byType[domain.ProofMetadata]
	if !ok || p.Metadata == nil {
		return domain.CheckResult{Detail: "metadata proof not available"}
	}
	if p.Metadata.QualityScore < minQuality {
		return domain.CheckResult{
			Detail: fmt.Sprintf("quality score %.2f below requested minimum %.2f", p.Metadata.QualityScore, minQuality),
		}
	}
	return domain.CheckResult{
		Passed: true,
		Detail: fmt.Sprintf("quality score %.2f meets minimum %.2f", p.Metadata.QualityScore, minQuality),
	}
}

func (uc *VerifyListing) cacheKey(req VerifyListingRequest) string {
	payload := map[string]any{
		"listing_id": req.ListingID,
		"keywords":   toAnySlice(req.Keywords),
		"fields":     toAnySlice(req.SchemaFields),
	}
	if req.MinSize != nil {
		payload["min_size"] = *req.MinSize
	}
	if req.MinQuality != nil {
		payload["min_quality"] = *req.MinQuality
	}
	key, err := proof.CanonicalHash(payload)
	if err != nil {
		return req.ListingID
	}
	return "verify:" + key
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
