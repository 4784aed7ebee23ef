package orchestrate

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

// parseAgentID parses the string form of an AgentID.
func parseAgentID(s string) (AgentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AgentID{}, err
	}
	return AgentID(u), nil
}

// defaultSessionTokenTTL bounds how long a pool-issued session token
// authenticates the transport between orchestrator and agent process
// before the agent must be reacquired.
const defaultSessionTokenTTL = 10 * time.Minute

// sessionClaims is the pool's own JWT claim set. It authenticates the
// transport session for a pooled agent connection; it never authorizes
// node execution, which is capability.Token's job.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// issueSessionToken signs a short-lived EdDSA JWT binding id to role.
func issueSessionToken(signingKey ed25519.PrivateKey, id AgentID, role string, now time.Time, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(signingKey)
}

// ErrSessionTokenInvalid is returned when a session token fails signature,
// expiry, or subject verification.
var ErrSessionTokenInvalid = errors.New("orchestrate: session token invalid")

// verifySessionToken checks tokenStr's signature against verifyingKey and
// returns the agent id and role it was issued to.
func verifySessionToken(verifyingKey ed25519.PublicKey, tokenStr string) (AgentID, string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrSessionTokenInvalid, t.Header["alg"])
		}
		return verifyingKey, nil
	})
	if err != nil || !token.Valid {
		return AgentID{}, "", fmt.Errorf("%w: %v", ErrSessionTokenInvalid, err)
	}
	id, err := parseAgentID(claims.Subject)
	if err != nil {
		return AgentID{}, "", fmt.Errorf("%w: %v", ErrSessionTokenInvalid, err)
	}
	return id, claims.Role, nil
}

// argon2 parameters for admission secret hashing, chosen per the OWASP
// baseline for Argon2id (19 MiB minimum is too low for a server-side
// secret; 64 MiB / 1 pass / 4 lanes matches typical API-key hashing).
const (
	admissionArgonTime    = 1
	admissionArgonMemory  = 64 * 1024
	admissionArgonThreads = 4
	admissionArgonKeyLen  = 32
	admissionArgonSaltLen = 16
)

// hashAdmissionSecret returns an encoded Argon2id hash of secret in the
// standard $argon2id$v=..$m=..,t=..,p=..$salt$hash form.
func hashAdmissionSecret(secret string) (string, error) {
	salt := make([]byte, admissionArgonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("orchestrate: generate admission salt: %w", err)
	}
	sum := argon2.IDKey([]byte(secret), salt, admissionArgonTime, admissionArgonMemory, admissionArgonThreads, admissionArgonKeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, admissionArgonMemory, admissionArgonTime, admissionArgonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// verifyAdmissionSecret reports whether secret matches encoded, in
// constant time. A malformed or empty encoded hash still runs a dummy
// Argon2id pass before returning false, so a misconfigured pool doesn't
// leak "no secret configured" through timing.
func verifyAdmissionSecret(secret, encoded string) bool {
	salt, want, err := decodeAdmissionHash(encoded)
	if err != nil {
		dummyVerifyAdmissionSecret(secret)
		return false
	}
	got := argon2.IDKey([]byte(secret), salt, admissionArgonTime, admissionArgonMemory, admissionArgonThreads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

func dummyVerifyAdmissionSecret(secret string) {
	salt := make([]byte, admissionArgonSaltLen)
	_ = argon2.IDKey([]byte(secret), salt, admissionArgonTime, admissionArgonMemory, admissionArgonThreads, admissionArgonKeyLen)
}

func decodeAdmissionHash(encoded string) (salt, hash []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, fmt.Errorf("orchestrate: malformed admission hash")
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, err
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, err
	}
	return salt, hash, nil
}
