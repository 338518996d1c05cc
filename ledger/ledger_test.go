package ledger_test

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veriyield/neuralchain/ledger"
)

var txHash = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func openHistory(t *testing.T) *ledger.History {
	t.Helper()
	h, err := ledger.OpenHistory(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestKeccakHex(t *testing.T) {
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", ledger.KeccakHex(nil))
}

func TestCanonicalJSON_SortsKeys(t *testing.T) {
	type payload struct {
		Zeta  string         `json:"zeta"`
		Alpha map[string]int `json:"alpha"`
	}

	out, err := ledger.CanonicalJSON(payload{Zeta: "z", Alpha: map[string]int{"b": 1, "a": 2}})

	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"zeta":"z"}`, string(out))
}

func TestChain_RecordIsDeterministic(t *testing.T) {
	h := openHistory(t)
	chain := ledger.NewChain(h, "", "")
	ctx := context.Background()

	first, err := chain.Record(ctx, map[string]any{"crop_type": "Tomato", "fci_grade": "Grade A"})
	require.NoError(t, err)
	second, err := chain.Record(ctx, map[string]any{"fci_grade": "Grade A", "crop_type": "Tomato"})
	require.NoError(t, err)
	other, err := chain.Record(ctx, map[string]any{"crop_type": "Onion"})
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.Regexp(t, txHash, first.TxHash)
	assert.Equal(t, first.TxHash, second.TxHash)
	assert.NotEqual(t, first.TxHash, other.TxHash)
	assert.Equal(t, ledger.DefaultNetwork, first.Network)
	assert.Equal(t, ledger.DefaultExplorerURL+first.TxHash, first.ExplorerLink)
	assert.JSONEq(t, `{"crop_type":"Tomato","fci_grade":"Grade A"}`, string(first.Payload))

	entries, err := h.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, ledger.TypeCropRecord, entries[0].Type)
}

func TestChain_WithoutHistory(t *testing.T) {
	r, err := ledger.NewChain(nil, "Local", "https://example.test/tx/").Record(context.Background(), []string{"x"})

	require.NoError(t, err)
	assert.Equal(t, "Local", r.Network)
	assert.Equal(t, "https://example.test/tx/"+r.TxHash, r.ExplorerLink)
}

func TestChain_RejectsUnencodable(t *testing.T) {
	_, err := ledger.NewChain(nil, "", "").Record(context.Background(), map[string]any{"f": func() {}})
	assert.Error(t, err)
}

func TestRandomTxHash(t *testing.T) {
	a, b := ledger.RandomTxHash(), ledger.RandomTxHash()
	assert.Regexp(t, txHash, a)
	assert.NotEqual(t, a, b)
}

func TestHistory_AppendAndList(t *testing.T) {
	h := openHistory(t)
	ctx := context.Background()

	for _, tx := range []string{"0x01", "0x02", "0x03"} {
		_, err := h.Append(ctx, ledger.TypeMint, map[string]any{"tx_hash": tx, "amount": 60})
		require.NoError(t, err)
	}

	latest, err := h.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "0x03", latest[0].Details["tx_hash"])
	assert.Equal(t, "0x02", latest[1].Details["tx_hash"])
	assert.EqualValues(t, 60, latest[0].Details["amount"])
	assert.NotEmpty(t, latest[0].ID)
	assert.False(t, latest[0].Timestamp.IsZero())

	all, err := h.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHistory_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	h, err := ledger.OpenHistory(path)
	require.NoError(t, err)
	_, err = h.Append(context.Background(), ledger.TypePayout, map[string]any{"amount": "0.5 ETH"})
	require.NoError(t, err)
	require.NoError(t, h.Close())

	h, err = ledger.OpenHistory(path)
	require.NoError(t, err)
	defer h.Close()
	entries, err := h.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestHistory_Balance(t *testing.T) {
	h := openHistory(t)
	ctx := context.Background()

	_, err := h.Append(ctx, ledger.TypePayout, map[string]any{"amount": "1.0 ETH (100% Coverage)"})
	require.NoError(t, err)
	_, err = h.Append(ctx, ledger.TypePayout, map[string]any{"amount": "0.5 ETH (50% Partial Payout)"})
	require.NoError(t, err)
	_, err = h.Append(ctx, ledger.TypeMint, map[string]any{"amount": "75"})
	require.NoError(t, err)
	_, err = h.Append(ctx, ledger.TypePayout, map[string]any{"amount": 3})
	require.NoError(t, err)

	balance, err := h.Balance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, balance, 1e-9)
}

func TestParseETH(t *testing.T) {
	assert.InDelta(t, 0.5, ledger.ParseETH("0.5 ETH (50% Partial Payout)"), 1e-9)
	assert.InDelta(t, 2, ledger.ParseETH("2 eth"), 1e-9)
	assert.Zero(t, ledger.ParseETH("0.0 ETH"))
	assert.Zero(t, ledger.ParseETH("free"))
}
