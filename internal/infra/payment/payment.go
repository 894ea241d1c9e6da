// Package payment holds the settlement providers. The simulated provider
// settles instantly with a synthetic hash and is the default for local and
// test deployments; the external provider records a hash produced by an
// outside settlement rail and supplied by the buyer.
package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"bazaar/internal/domain"
)

const (
	ModeSimulated = "simulated"
	ModeExternal  = "external"
)

// FromMode maps the PAYMENT_MODE config value to a provider. Unrecognized
// values fall back to simulated so a typo never blocks local settlement.
func FromMode(mode string) Provider {
	if strings.EqualFold(mode, ModeExternal) {
		return &ExternalProvider{}
	}
	return &SimulatedProvider{}
}

type Provider interface {
	Method() string
	Confirm(ctx context.Context, tx domain.Transaction, signature, txHash string) (string, error)
}

// SimulatedProvider settles every confirmation immediately. The synthetic
// hash is deterministic over the transaction identity and amount so retries
// of the same confirmation produce the same reference.
type SimulatedProvider struct{}

func (p *SimulatedProvider) Method() string { return ModeSimulated }

func (p *SimulatedProvider) Confirm(_ context.Context, tx domain.Transaction, _ string, _ string) (string, error) {
	sum := sha256.Sum256([]byte(fmt.Sprintf("payment:%s:%s:%.6f", tx.ID, tx.BuyerID, tx.AmountUSDC)))
	return "sim_" + hex.EncodeToString(sum[:16]), nil
}

// ExternalProvider trusts an outside rail to have settled and only records
// the hash the buyer supplies. An empty hash means nothing settled.
type ExternalProvider struct{}

func (p *ExternalProvider) Method() string { return ModeExternal }

func (p *ExternalProvider) Confirm(_ context.Context, _ domain.Transaction, _ string, txHash string) (string, error) {
	if strings.TrimSpace(txHash) == "" {
		return "", domain.ValidationError("payment_tx_hash is required in external payment mode")
	}
	return txHash, nil
}
