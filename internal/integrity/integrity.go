// Package integrity provides tamper-evident hashing, Merkle tree
// construction, and signed-snapshot verification for locked states and
// saved minds. All hashing functions are pure and deterministic.
package integrity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// hashPrefix marks the current length-prefixed binary encoding, so a future
// encoding change can be detected instead of silently producing wrong
// comparisons against hashes computed by an older build.
const hashPrefix = "v1:"

// HashFields produces a versioned SHA-256 hex digest over an ordered list of
// canonical fields. Each field is length-prefixed before hashing, avoiding
// delimiter collisions when a field's own text happens to contain whatever
// separator a naive implementation would otherwise pick.
//
// Callers are responsible for canonical field order and for formatting
// numeric/time fields deterministically (e.g. RFC3339Nano in UTC) before
// passing them in — HashFields itself only concatenates and hashes.
func HashFields(fields ...string) string {
	h := sha256.New()
	for _, f := range fields {
		writeField(h, f)
	}
	return hashPrefix + hex.EncodeToString(h.Sum(nil))
}

func writeField(h interface{ Write([]byte) (int, error) }, s string) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s))) //nolint:gosec // field lengths bound by in-process object sizes
	_, _ = h.Write(lenBuf[:])
	_, _ = h.Write([]byte(s))
}

// hashPair produces SHA-256(0x01 || len(a) || a || b) as a hex string.
// The 0x01 prefix is a domain separator for internal Merkle tree nodes (per
// RFC 6962), so internal node hashes can never collide with leaf hashes.
func hashPair(a, b string) string {
	h := sha256.New()
	_, _ = h.Write([]byte{0x01})
	writeField(h, a)
	_, _ = h.Write([]byte(b))
	return hex.EncodeToString(h.Sum(nil))
}

// BuildMerkleRoot constructs a Merkle tree from leaf hashes and returns the
// root. Leaves must already be in the caller's canonical order (callers in
// this module use declaration order, not sorted order, so the root reflects
// §5's ordering guarantees rather than discarding them).
//
// An empty leaf set returns "". A single leaf is its own root. Odd-length
// levels hash the last node with itself, binding it to its tree position.
func BuildMerkleRoot(leaves []string) string {
	if len(leaves) == 0 {
		return ""
	}
	if len(leaves) == 1 {
		return leaves[0]
	}

	level := make([]string, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		var next []string
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, hashPair(level[i], level[i+1]))
			} else {
				next = append(next, hashPair(level[i], level[i]))
			}
		}
		level = next
	}
	return level[0]
}

// snapshotClaims extends jwt.RegisteredClaims with the Merkle root of the
// snapshot's state hashes (the caller's choice of leaves; anamnesisctl
// includes every nested mind's states), the way akashi's auth.Claims extends
// RegisteredClaims with agent identity.
type snapshotClaims struct {
	jwt.RegisteredClaims
	MerkleRoot string `json:"merkle_root"`
}

// SignSnapshot produces a compact JWS over the Merkle root of a saved mind's
// locked-state content hashes, using Ed25519 (EdDSA), so a receiving process
// can verify a save_mind payload travelled unaltered without re-implementing
// a bespoke signature format.
func SignSnapshot(mindID int, merkleRoot string, privateKey ed25519.PrivateKey) (string, error) {
	now := time.Now().UTC()
	claims := snapshotClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("mind:%d", mindID),
			Issuer:    "anamnesis",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		MerkleRoot: merkleRoot,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("integrity: sign snapshot: %w", err)
	}
	return signed, nil
}

// VerifySnapshot checks that a snapshot token was signed with the private
// key matching publicKey and that its embedded Merkle root equals
// the freshly recomputed one.
func VerifySnapshot(tokenStr string, wantMerkleRoot string, publicKey ed25519.PublicKey) error {
	token, err := jwt.ParseWithClaims(tokenStr, &snapshotClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("integrity: unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return fmt.Errorf("integrity: validate snapshot token: %w", err)
	}
	claims, ok := token.Claims.(*snapshotClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("integrity: invalid snapshot token")
	}
	if claims.MerkleRoot != wantMerkleRoot {
		return fmt.Errorf("integrity: merkle root mismatch: token has %q, recomputed %q", claims.MerkleRoot, wantMerkleRoot)
	}
	return nil
}
