package integrity

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
)

func TestHashFields_Deterministic(t *testing.T) {
	h1 := HashFields("temporal", "1", "2", "0.900000", "10", "")
	h2 := HashFields("temporal", "1", "2", "0.900000", "10", "")

	if h1 != h2 {
		t.Fatalf("hash not deterministic: %q != %q", h1, h2)
	}
	if !strings.HasPrefix(h1, "v1:") {
		t.Fatalf("expected v1: prefix, got %q", h1)
	}
	// v1: prefix (3 chars) + 64-char hex SHA-256 = 67 chars total.
	if len(h1) != 67 {
		t.Fatalf("expected 67-char hash (3 prefix + 64 hex), got %d chars", len(h1))
	}
}

func TestHashFields_DifferentInputs(t *testing.T) {
	h1 := HashFields("temporal", "1", "2")
	h2 := HashFields("temporal", "1", "3")

	if h1 == h2 {
		t.Fatal("different fields should produce different hashes")
	}
}

func TestHashFields_AvoidsBoundaryCollision(t *testing.T) {
	// Two inputs that would collide under naive concatenation ("ab"+"c" ==
	// "a"+"bc") but not under length-prefixed encoding.
	h1 := HashFields("ab", "c")
	h2 := HashFields("a", "bc")

	if h1 == h2 {
		t.Fatal("hashes should not collide when field boundaries shift")
	}
}

func TestBuildMerkleRoot_Empty(t *testing.T) {
	root := BuildMerkleRoot(nil)
	if root != "" {
		t.Fatalf("empty input should produce empty root, got %q", root)
	}
}

func TestBuildMerkleRoot_SingleLeaf(t *testing.T) {
	leaf := "abc123"
	root := BuildMerkleRoot([]string{leaf})
	if root != leaf {
		t.Fatalf("single leaf should be the root: got %q, want %q", root, leaf)
	}
}

func TestBuildMerkleRoot_Deterministic(t *testing.T) {
	leaves := []string{"hash_a", "hash_b", "hash_c", "hash_d"}

	r1 := BuildMerkleRoot(leaves)
	r2 := BuildMerkleRoot(leaves)

	if r1 != r2 {
		t.Fatalf("Merkle root not deterministic: %q != %q", r1, r2)
	}
	if len(r1) != 64 {
		t.Fatalf("expected 64-char hex SHA-256 root, got %d chars", len(r1))
	}
}

func TestBuildMerkleRoot_OrderMatters(t *testing.T) {
	r1 := BuildMerkleRoot([]string{"a", "b", "c"})
	r2 := BuildMerkleRoot([]string{"b", "a", "c"})

	if r1 == r2 {
		t.Fatal("different leaf ordering should produce different roots")
	}
}

func TestBuildMerkleRoot_OddLeafCount(t *testing.T) {
	// With 3 leaves: pair (0,1), pair (2,2). Then pair (hash01, hash22) -> root.
	root := BuildMerkleRoot([]string{"x", "y", "z"})
	if root == "" {
		t.Fatal("odd leaf count should still produce a root")
	}
	if len(root) != 64 {
		t.Fatalf("expected 64-char hex SHA-256 root, got %d chars", len(root))
	}
}

func TestSignAndVerifySnapshot(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	root := BuildMerkleRoot([]string{"a", "b", "c"})
	token, err := SignSnapshot(42, root, priv)
	if err != nil {
		t.Fatalf("sign snapshot: %v", err)
	}

	if err := VerifySnapshot(token, root, pub); err != nil {
		t.Fatalf("verify snapshot: %v", err)
	}
}

func TestVerifySnapshot_RootMismatch(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	root := BuildMerkleRoot([]string{"a", "b", "c"})
	token, err := SignSnapshot(42, root, priv)
	if err != nil {
		t.Fatalf("sign snapshot: %v", err)
	}

	otherRoot := BuildMerkleRoot([]string{"a", "b", "d"})
	if err := VerifySnapshot(token, otherRoot, pub); err == nil {
		t.Fatal("expected verification error for mismatched root")
	}
}

func TestVerifySnapshot_WrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	root := BuildMerkleRoot([]string{"a"})
	token, err := SignSnapshot(1, root, priv)
	if err != nil {
		t.Fatalf("sign snapshot: %v", err)
	}

	if err := VerifySnapshot(token, root, otherPub); err == nil {
		t.Fatal("expected verification error for wrong public key")
	}
}
