package envelope

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
	"github.com/lestrrat-go/jwx/v2/jws"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrSignatureInvalid  = errors.New("envelope signature invalid")
	ErrDecryptionFailed  = errors.New("envelope decryption failed")
)

const (
	jwsSegmentCount = 3
	jweSegmentCount = 5

	clientIDHeader = "clientid"
)

// Codec builds and parses the gateway transport envelopes. Requests are
// encrypted with a direct A256GCM key and the resulting compact token is
// signed as the payload of an HS256 JWS. Responses are unwrapped in the
// reverse order: the outer signature is always verified before any
// decryption is attempted.
type Codec struct {
	signingKey    []byte
	encryptionKey []byte
	clientID      string
	keyID         string
}

// NewCodec derives the 256-bit content encryption key from the configured
// encryption secret.
func NewCodec(signingSecret, encryptionSecret, clientID, keyID string) *Codec {
	encryptionKey := sha256.Sum256([]byte(encryptionSecret))
	return &Codec{
		signingKey:    []byte(signingSecret),
		encryptionKey: encryptionKey[:],
		clientID:      clientID,
		keyID:         keyID,
	}
}

// Sign produces a sign-only compact envelope.
func (c *Codec) Sign(payload []byte) (string, error) {
	headers := jws.NewHeaders()
	if err := headers.Set(clientIDHeader, c.clientID); err != nil {
		return "", fmt.Errorf("failed to set clientid header: %w", err)
	}
	if err := headers.Set(jws.KeyIDKey, c.keyID); err != nil {
		return "", fmt.Errorf("failed to set kid header: %w", err)
	}
	signed, err := jws.Sign(
		payload,
		jws.WithKey(jwa.HS256, c.signingKey, jws.WithProtectedHeaders(headers)),
	)
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return string(signed), nil
}

// Verify checks the signature of a sign-only compact envelope and returns
// its payload.
func (c *Codec) Verify(compact string) ([]byte, error) {
	if strings.Count(compact, ".") != jwsSegmentCount-1 {
		return nil, ErrMalformedEnvelope
	}
	payload, err := jws.Verify([]byte(compact), jws.WithKey(jwa.HS256, c.signingKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	return payload, nil
}

// EncryptAndSign produces the primary envelope shape: the payload is
// encrypted into a compact JWE which is then signed as an opaque JWS payload.
func (c *Codec) EncryptAndSign(payload []byte) (string, error) {
	headers := jwe.NewHeaders()
	if err := headers.Set(jwe.KeyIDKey, c.keyID); err != nil {
		return "", fmt.Errorf("failed to set kid header: %w", err)
	}
	if err := headers.Set(clientIDHeader, c.clientID); err != nil {
		return "", fmt.Errorf("failed to set clientid header: %w", err)
	}
	encrypted, err := jwe.Encrypt(
		payload,
		jwe.WithKey(jwa.DIRECT, c.encryptionKey),
		jwe.WithContentEncryption(jwa.A256GCM),
		jwe.WithProtectedHeaders(headers),
	)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt payload: %w", err)
	}
	return c.Sign(encrypted)
}

// VerifyAndDecrypt verifies the outer signature first and only then
// decrypts the inner token. A verified payload that is not itself a compact
// JWE is returned as-is to stay interoperable with sign-only peers.
func (c *Codec) VerifyAndDecrypt(compact string) ([]byte, error) {
	verified, err := c.Verify(compact)
	if err != nil {
		return nil, err
	}
	if strings.Count(string(verified), ".") != jweSegmentCount-1 {
		return verified, nil
	}
	decrypted, err := jwe.Decrypt(verified, jwe.WithKey(jwa.DIRECT, c.encryptionKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return decrypted, nil
}
