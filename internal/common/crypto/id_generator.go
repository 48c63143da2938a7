package crypto

import "github.com/google/uuid"

// IDGenerator issues unique opaque identifiers. Session token ids (jti
// claims) come from here so tests can pin them.
type IDGenerator interface {
	NewID() (string, error)
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

var _ IDGenerator = (*UUIDGenerator)(nil)

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	return uuid.NewString(), nil
}
