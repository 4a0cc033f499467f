// Package fair implements the commit-reveal random generator used for
// every dice draw. All functions are pure and safe for concurrent use;
// the only state is the secret the caller holds.
package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrInvalidRange     = errors.New("fair: min must not exceed max")
	ErrSeedVerification = errors.New("fair: seed does not match commitment")
)

// SeedPair holds the seeds scoping one match. ServerSeed stays secret
// until the match ends; ServerSeedHash is published at creation so the
// seed cannot be swapped afterwards.
type SeedPair struct {
	ServerSeed     string `json:"-"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
}

// NewServerSeed returns a hex-encoded 256-bit secret.
func NewServerSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NewClientSeed returns a hex-encoded 256-bit seed for players who do
// not supply their own.
func NewClientSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate client seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Commit returns the SHA-256 commitment over the secret's hex string.
func Commit(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// Draw computes a die face in [min, max] from the seed pair and nonce.
// The HMAC is keyed with the secret so the output requires knowledge of
// it, while the published commitment pins the secret in advance. The
// modulo range mapping carries negligible bias for face ranges this
// small; verifiability, not uniformity, is the goal here.
func Draw(secret, seed string, nonce int64, min, max int) (int, error) {
	if min > max {
		return 0, ErrInvalidRange
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s:%d", secret, seed, nonce)
	sum := mac.Sum(nil)

	v := binary.BigEndian.Uint32(sum[:4])
	span := uint32(max - min + 1)

	return min + int(v%span), nil
}

// Verify recomputes Draw and reports whether it matches the claimed
// value.
func Verify(secret, seed string, nonce int64, claimed, min, max int) (bool, error) {
	got, err := Draw(secret, seed, nonce, min, max)
	if err != nil {
		return false, err
	}
	return got == claimed, nil
}

// VerifyCommitment reports whether the secret matches a previously
// published commitment.
func VerifyCommitment(secret, hash string) bool {
	return Commit(secret) == hash
}

// Nonce packs (round, rollSeq, dieIndex) into the draw counter. The
// formula is fixed so any past draw can be re-derived without a stored
// counter. Supports up to 100 dice per roll and 10000 rolls per round.
func Nonce(round, rollSeq, dieIndex int) int64 {
	return int64(round)*1_000_000 + int64(rollSeq)*100 + int64(dieIndex)
}
