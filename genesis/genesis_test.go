package genesis

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/axnchain/axnd/ledgererr"
	"github.com/axnchain/axnd/utxo"
)

const samplePayload = `{
	"timestamp": 1700000000,
	"nonce": 0,
	"merkle_root": "deadbeef",
	"hash": "00cafe",
	"transactions": [
		{"sender": "COINBASE", "recipient": "AXNalicealicealicealicealicealicealicealice", "amount": "12.00000000", "fee": "0.00000000", "timestamp": 1700000000, "txid": "genesis-tx-1"}
	]
}`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.json")
	if err := os.WriteFile(path, []byte(samplePayload), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAcceptsMatchingHash(t *testing.T) {
	path := writeSample(t)
	sum := sha256.Sum256([]byte(samplePayload))
	safeHash := hex.EncodeToString(sum[:])

	payload, err := Load(path, safeHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(payload.Transactions))
	}
}

func TestLoadRejectsMismatchedHash(t *testing.T) {
	path := writeSample(t)

	_, err := Load(path, "0000000000000000000000000000000000000000000000000000000000000000")
	if !ledgererr.Is(err, ledgererr.ErrGenesisHashMismatch) {
		t.Fatalf("expected ErrGenesisHashMismatch, got %v", err)
	}
}

func TestBlockAndCreditInitialUTXOs(t *testing.T) {
	path := writeSample(t)
	payload, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}

	block := Block(payload, 4)
	if block.Index != 0 {
		t.Fatalf("expected genesis index 0, got %d", block.Index)
	}

	u := utxo.New()
	CreditInitialUTXOs(u, block)

	recipient := "AXNalicealicealicealicealicealicealicealice"
	got := u.Balance(recipient, 0)
	want := TotalAmount(block)
	if got != want {
		t.Fatalf("got balance %s want %s", got, want)
	}
}
