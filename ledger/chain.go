// Package ledger simulates on-chain records and keeps the local transaction
// history shown in the farmer's wallet.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"
)

// Defaults for the simulated network.
const (
	DefaultNetwork     = "Polygon Amoy Testnet (Simulated)"
	DefaultExplorerURL = "https://amoy.polygonscan.com/tx/"
)

// Receipt is the result of recording a payload.
type Receipt struct {
	Success      bool            `json:"success"`
	TxHash       string          `json:"transaction_hash"`
	Network      string          `json:"network"`
	Timestamp    time.Time       `json:"timestamp"`
	Payload      json.RawMessage `json:"crop_data"`
	ExplorerLink string          `json:"explorer_link"`
}

// Chain produces mock transactions. Hashes are deterministic: the same
// payload always yields the same hash.
type Chain struct {
	history     *History
	network     string
	explorerURL string
	now         func() time.Time
}

// NewChain creates a chain that appends its records to history, which may be nil.
func NewChain(history *History, network, explorerURL string) *Chain {
	if network == "" {
		network = DefaultNetwork
	}
	if explorerURL == "" {
		explorerURL = DefaultExplorerURL
	}
	return &Chain{history: history, network: network, explorerURL: explorerURL, now: time.Now}
}

// Record hashes payload into a mock transaction.
func (c *Chain) Record(ctx context.Context, payload any) (Receipt, error) {
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return Receipt{}, err
	}

	hash := KeccakHex(canonical)
	r := Receipt{
		Success:      true,
		TxHash:       hash,
		Network:      c.network,
		Timestamp:    c.now().UTC(),
		Payload:      canonical,
		ExplorerLink: c.explorerURL + hash,
	}

	if c.history != nil {
		if _, err := c.history.Append(ctx, TypeCropRecord, map[string]any{
			"tx":      hash,
			"network": c.network,
		}); err != nil {
			return Receipt{}, err
		}
	}
	return r, nil
}

// CanonicalJSON encodes v with object keys sorted at every level.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	// Round-tripping through any sorts struct fields like map keys.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}
	return json.Marshal(generic)
}

// KeccakHex returns the 0x-prefixed Keccak-256 of data.
func KeccakHex(data []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// RandomTxHash returns a random 32-byte hash in 0x-hex form.
func RandomTxHash() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return "0x" + hex.EncodeToString(b[:])
}
