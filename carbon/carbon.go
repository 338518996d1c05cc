// Package carbon scores regenerative farming practices and mints mock
// AgriTokens for eligible farms.
package carbon

import (
	"context"
	"errors"
	"fmt"

	"github.com/veriyield/neuralchain/ledger"
)

// BaseScore is awarded to every farm.
const BaseScore = 100

// MintThreshold is the score a farm must exceed to mint tokens.
const MintThreshold = 100

// ErrNotEligible is returned when minting below MintThreshold.
var ErrNotEligible = errors.New("green score too low to mint")

// Practices is a farmer's self-reported audit.
type Practices struct {
	Tillage    string `json:"tillage"`    // "No-Till" or "Conventional"
	Irrigation string `json:"irrigation"` // "Drip", "Flood" or "Sprinkler"
	Fertilizer string `json:"fertilizer"` // "Organic" or "Synthetic"
	CoverCrop  bool   `json:"cover_crop"`

	// PhotoVerified is set when a photo audit confirmed the headline claim.
	PhotoVerified bool `json:"photo_verified"`
}

// HeadlineClaim is the practice worth auditing with a photo: no-till when
// claimed, otherwise the irrigation method.
func (p Practices) HeadlineClaim() string {
	if p.Tillage == "No-Till" {
		return p.Tillage
	}
	return p.Irrigation
}

// Result is a scored audit.
type Result struct {
	Score          int      `json:"score"`
	Breakdown      []string `json:"breakdown"`
	EligibleTokens int      `json:"eligible_tokens"`
}

// Eligible reports whether the score allows minting.
func (r Result) Eligible() bool {
	return r.Score > MintThreshold
}

// Score computes the green score for p.
func Score(p Practices) Result {
	r := Result{Score: BaseScore}
	add := func(points int, line string) {
		r.Score += points
		r.Breakdown = append(r.Breakdown, fmt.Sprintf("✅ +%d: %s", points, line))
	}

	if p.Tillage == "No-Till" {
		add(20, "No-Till Soil Conservation")
	}
	if p.Irrigation == "Drip" {
		add(15, "Water Conservation (Drip)")
	}
	if p.Fertilizer == "Organic" {
		add(15, "Chemical-Free Input")
	}
	if p.CoverCrop {
		add(10, "Cover Cropping")
	}
	if p.PhotoVerified {
		r.Score += 20
		r.Breakdown = append(r.Breakdown, "🌟 +20: AI Visual Proof Bonus")
	}

	r.EligibleTokens = r.Score / 2
	return r
}

// MintReceipt is the result of a mock mint.
type MintReceipt struct {
	TxHash string `json:"tx_hash"`
	Amount int    `json:"amount"`
	Status string `json:"status"`
}

// Minter issues mock token mints.
type Minter struct {
	history *ledger.History
}

// NewMinter creates a minter logging to history, which may be nil.
func NewMinter(history *ledger.History) *Minter {
	return &Minter{history: history}
}

// Mint issues the result's eligible tokens to wallet.
func (m *Minter) Mint(ctx context.Context, wallet string, r Result) (MintReceipt, error) {
	if !r.Eligible() {
		return MintReceipt{}, fmt.Errorf("%w: %d", ErrNotEligible, r.Score)
	}

	receipt := MintReceipt{TxHash: ledger.RandomTxHash(), Amount: r.EligibleTokens, Status: "Minted"}
	if m.history != nil {
		if _, err := m.history.Append(ctx, ledger.TypeMint, map[string]any{
			"amount": receipt.Amount,
			"tx":     receipt.TxHash,
			"wallet": wallet,
		}); err != nil {
			return MintReceipt{}, fmt.Errorf("log mint: %w", err)
		}
	}
	return receipt, nil
}
