package capability

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/kernel/hash"
)

// boundOperationExecute is the only bound_operation the construction phase
// issues today (see NewConstructionToken); the field is still general.
const boundOperationExecute = "execute"

// Token is a capability token: a signed binding of a node, an autonomy
// ceiling, a resource envelope, a directive hash, a validity window, and an
// operation the holder is authorized to perform.
type Token struct {
	NodeID          uuid.UUID
	AutonomyCeiling AutonomyLevel
	Resources       ResourceCaps
	DirectiveHash   hash.Hash
	IssuedAt        time.Time
	ExpiresAt       time.Time // zero means no expiry
	BoundOperation  string
	Signature       []byte
}

// message builds the canonical little-endian byte message that is signed
// and verified. Field order and width are fixed:
// node_id(16B) ‖ autonomy_level(1B) ‖ cpu_ms(8B) ‖ memory_bytes(8B) ‖
// token_limit(8B) ‖ iteration_cap(8B) ‖ directive_hash(32B) ‖
// issued_at(8B) ‖ expires_at(8B) ‖ bound_operation_bytes.
func (t Token) message() []byte {
	buf := make([]byte, 0, 16+1+8+8+8+8+32+8+8+len(t.BoundOperation))
	idBytes, _ := t.NodeID.MarshalBinary()
	buf = append(buf, idBytes...)
	buf = append(buf, t.AutonomyCeiling.Value())

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], t.Resources.CPUMillis)
	buf = append(buf, u64[:]...)
	binary.LittleEndian.PutUint64(u64[:], t.Resources.MemoryBytes)
	buf = append(buf, u64[:]...)
	binary.LittleEndian.PutUint64(u64[:], t.Resources.TokenLimit)
	buf = append(buf, u64[:]...)
	binary.LittleEndian.PutUint64(u64[:], t.Resources.IterationCap)
	buf = append(buf, u64[:]...)

	buf = append(buf, t.DirectiveHash[:]...)

	binary.LittleEndian.PutUint64(u64[:], uint64(unixOrZero(t.IssuedAt)))
	buf = append(buf, u64[:]...)
	binary.LittleEndian.PutUint64(u64[:], uint64(unixOrZero(t.ExpiresAt)))
	buf = append(buf, u64[:]...)

	buf = append(buf, t.BoundOperation...)
	return buf
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// Issue signs a new token with signingKey over the canonical message.
func Issue(signingKey ed25519.PrivateKey, nodeID uuid.UUID, autonomy AutonomyLevel, resources ResourceCaps, directiveHash hash.Hash, boundOperation string, issuedAt time.Time, expiresAt time.Time) Token {
	t := Token{
		NodeID:          nodeID,
		AutonomyCeiling: autonomy,
		Resources:       resources,
		DirectiveHash:   directiveHash,
		IssuedAt:        issuedAt,
		ExpiresAt:       expiresAt,
		BoundOperation:  boundOperation,
	}
	t.Signature = ed25519.Sign(signingKey, t.message())
	return t
}

// NewConstructionToken issues the construction phase's default per-node
// token: bound to "execute", valid for one hour from issuedAt.
func NewConstructionToken(signingKey ed25519.PrivateKey, nodeID uuid.UUID, autonomy AutonomyLevel, resources ResourceCaps, directiveHash hash.Hash, issuedAt time.Time) Token {
	return Issue(signingKey, nodeID, autonomy, resources, directiveHash, boundOperationExecute, issuedAt, issuedAt.Add(time.Hour))
}

// Verify checks t's signature against verifyingKey over the canonical message.
func (t Token) Verify(verifyingKey ed25519.PublicKey) bool {
	if len(t.Signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(verifyingKey, t.message(), t.Signature)
}

// IsExpired reports whether ExpiresAt is non-zero and at or before now.
func (t Token) IsExpired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// IsBoundTo reports whether t authorizes op: true when BoundOperation is
// empty (unrestricted) or equals op exactly.
func (t Token) IsBoundTo(op string) bool {
	return t.BoundOperation == "" || t.BoundOperation == op
}

// ErrTokenIntegrityFailure is returned when a token's signature does not
// verify against the kernel's verifying key.
var ErrTokenIntegrityFailure = errors.New("capability: token integrity failure")

// ErrTokenExpired is returned when a token has passed its expiry.
var ErrTokenExpired = errors.New("capability: token expired")

// ErrTokenBindingFailure is returned when a token is presented for a node
// or operation it is not bound to.
var ErrTokenBindingFailure = errors.New("capability: token binding failure")

// CheckIntegrity runs the three checks the executor performs against every
// token before dispatch: signature, expiry, and node/operation binding.
func (t Token) CheckIntegrity(verifyingKey ed25519.PublicKey, nodeID uuid.UUID, operation string, now time.Time) error {
	if !t.Verify(verifyingKey) {
		return ErrTokenIntegrityFailure
	}
	if t.IsExpired(now) {
		return ErrTokenExpired
	}
	if t.NodeID != nodeID || !t.IsBoundTo(operation) {
		return ErrTokenBindingFailure
	}
	return nil
}
