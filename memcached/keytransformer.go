package memcached

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/goforj/cachekit"
)

// MaxKeyLength is the longest key the memcached text protocol accepts.
const MaxKeyLength = 250

// KeyTransformer maps an application key to a protocol-safe key.
type KeyTransformer interface {
	Transform(key string) (string, error)
}

// KeyTransformerFunc adapts a function to KeyTransformer.
type KeyTransformerFunc func(key string) (string, error)

// Transform implements KeyTransformer.
func (f KeyTransformerFunc) Transform(key string) (string, error) { return f(key) }

// DefaultKeyTransformer passes valid keys through unchanged and hashes keys
// that are too long. Keys containing whitespace or control bytes are rejected.
type DefaultKeyTransformer struct{}

func (DefaultKeyTransformer) Transform(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	if len(key) >= MaxKeyLength {
		return sha1Hex(key), nil
	}
	return key, nil
}

// SHA1KeyTransformer replaces every key with its hex SHA-1 digest.
type SHA1KeyTransformer struct{}

func (SHA1KeyTransformer) Transform(key string) (string, error) {
	if key == "" {
		return "", cachekit.NewArgumentError("cacheKey", "must not be empty")
	}
	return sha1Hex(key), nil
}

// Base64KeyTransformer encodes keys with URL-safe base64, so any byte is
// allowed. Encodings longer than MaxKeyLength fall back to SHA-1.
type Base64KeyTransformer struct{}

func (Base64KeyTransformer) Transform(key string) (string, error) {
	if key == "" {
		return "", cachekit.NewArgumentError("cacheKey", "must not be empty")
	}
	enc := base64.RawURLEncoding.EncodeToString([]byte(key))
	if len(enc) >= MaxKeyLength {
		return sha1Hex(key), nil
	}
	return enc, nil
}

// PrefixKeyTransformer namespaces keys with Prefix before handing them to
// Inner (DefaultKeyTransformer when nil).
type PrefixKeyTransformer struct {
	Prefix string
	Inner  KeyTransformer
}

func (t PrefixKeyTransformer) Transform(key string) (string, error) {
	inner := t.Inner
	if inner == nil {
		inner = DefaultKeyTransformer{}
	}
	if key == "" {
		return "", cachekit.NewArgumentError("cacheKey", "must not be empty")
	}
	return inner.Transform(t.Prefix + key)
}

func checkKey(key string) error {
	if key == "" {
		return cachekit.NewArgumentError("cacheKey", "must not be empty")
	}
	if i := strings.IndexFunc(key, func(r rune) bool { return r <= ' ' || r == 0x7f }); i >= 0 {
		return cachekit.NewArgumentError("cacheKey", "must not contain whitespace or control characters")
	}
	return nil
}

func sha1Hex(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
