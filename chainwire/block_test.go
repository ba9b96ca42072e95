package chainwire

import "testing"

func txWithID(id string) *Transaction {
	return &Transaction{TxID: id, Sender: CoinbaseSender, TxType: TxCoinbase}
}

func TestMerkleRootDuplicatesOddLeaf(t *testing.T) {
	three := []*Transaction{txWithID("a"), txWithID("b"), txWithID("c")}
	four := []*Transaction{txWithID("a"), txWithID("b"), txWithID("c"), txWithID("c")}

	if CalculateMerkleRoot(three) != CalculateMerkleRoot(four) {
		t.Fatal("an odd level should duplicate its last leaf, matching the padded even level")
	}
}

func TestMerkleRootSingleTransaction(t *testing.T) {
	root := CalculateMerkleRoot([]*Transaction{txWithID("only")})
	if root == "" {
		t.Fatal("expected a non-empty merkle root for a single transaction")
	}
}

func TestMeetsDifficulty(t *testing.T) {
	if !MeetsDifficulty("000abc", 3) {
		t.Fatal("expected 3 leading zeros to satisfy difficulty 3")
	}
	if MeetsDifficulty("00abc", 3) {
		t.Fatal("expected 2 leading zeros to fail difficulty 3")
	}
}

// TestBlockRoundTrip is property P6 for blocks.
func TestBlockRoundTrip(t *testing.T) {
	b := &Block{
		Index:        1,
		Timestamp:    1700000000,
		PreviousHash: "deadbeef",
		Transactions: []*Transaction{txWithID("a")},
		Difficulty:   2,
	}
	b.ComputeMerkleRoot()
	hash, err := b.CanonicalHash()
	if err != nil {
		t.Fatal(err)
	}
	b.Hash = hash

	encoded, err := b.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DeserializeBlock(encoded)
	if err != nil {
		t.Fatal(err)
	}
	reencoded, err := decoded.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if string(encoded) != string(reencoded) {
		t.Fatalf("round trip mismatch:\n%s\n%s", encoded, reencoded)
	}
}

// TestBlockHashSoundness is property P5.
func TestBlockHashSoundness(t *testing.T) {
	b := &Block{Index: 0, PreviousHash: ZeroHash, Transactions: []*Transaction{txWithID("g")}}
	b.ComputeMerkleRoot()
	hash, err := b.CanonicalHash()
	if err != nil {
		t.Fatal(err)
	}
	b.Hash = hash

	recomputed, err := b.CanonicalHash()
	if err != nil {
		t.Fatal(err)
	}
	if recomputed != b.Hash {
		t.Fatal("recomputed hash must match the stored hash")
	}
}
