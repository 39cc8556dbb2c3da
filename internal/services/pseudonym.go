package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Pseudonyms replace a santa's member id in everything shown to their
// giftee. The mapping is keyed, so the giftee cannot recover it by hashing
// the known member ids.
type Pseudonyms struct {
	key []byte
}

func NewPseudonyms(secret []byte) (*Pseudonyms, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, nil, []byte("secretsanta santa pseudonym v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return &Pseudonyms{key: key}, nil
}

// Santa returns the stable pseudonym of santaID within raffleID.
func (p *Pseudonyms) Santa(raffleID, santaID uuid.UUID) uuid.UUID {
	return uuid.NewHash(hmac.New(sha256.New, p.key), raffleID, santaID[:], 5)
}
