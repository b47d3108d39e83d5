// Package codec implements the serialization boundary of the storage core:
// JSON encoding of arbitrary value trees, plus an optional authenticated
// encryption envelope applied transparently on top of the JSON bytes.
package codec

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/goliatone/kvengine/kverrors"
)

// Mode selects the authenticated-encryption transform applied to the JSON
// payload before it is stored. ModeNone disables encryption entirely.
type Mode string

const (
	ModeNone     Mode = ""
	ModeAESGCM   Mode = "aes-gcm"
	ModeChaCha20 Mode = "chacha20"
	ModeFernet   Mode = "fernet"
)

// Codec encodes values to/from the TEXT representation stored in the
// value column, optionally wrapping the JSON bytes in an authenticated
// encryption envelope.
type Codec struct {
	encryptor encryptor
}

// New builds a Codec. When key is empty, values are stored as plain JSON
// text. Otherwise key must be 32 bytes and mode selects the AEAD transform.
func New(mode Mode, key []byte) (*Codec, error) {
	enc, err := newEncryptor(mode, key)
	if err != nil {
		return nil, err
	}
	return &Codec{encryptor: enc}, nil
}

// Encode serializes v to JSON (UTF-8, no HTML/ASCII escaping) and, if
// encryption is configured, wraps it in an authenticated envelope. The
// returned string is what gets stored verbatim in the value column.
func (c *Codec) Encode(v any) (string, error) {
	buf, err := marshalJSON(v)
	if err != nil {
		return "", kverrors.TypeMismatch("value is not JSON-serializable: %v", err)
	}

	if c.encryptor == nil {
		return string(buf), nil
	}

	sealed, err := c.encryptor.Seal(buf)
	if err != nil {
		return "", fmt.Errorf("codec: seal envelope: %w", err)
	}
	return sealed, nil
}

// Decode reverses Encode. Any authentication failure returns a decryption
// error from kverrors; the caller must never surface the raw stored bytes.
func (c *Codec) Decode(stored string, dest any) error {
	var plain []byte

	if c.encryptor == nil {
		plain = []byte(stored)
	} else {
		opened, err := c.encryptor.Open(stored)
		if err != nil {
			return kverrors.Decryption(err)
		}
		plain = opened
	}

	if err := unmarshalJSON(plain, dest); err != nil {
		return kverrors.TypeMismatch("stored value is not valid JSON: %v", err)
	}
	return nil
}

// DecodeAny is a convenience wrapper returning the decoded value as `any`
// (a JSON tree: map[string]any / []any / string / float64 / bool / nil).
func (c *Codec) DecodeAny(stored string) (any, error) {
	var v any
	if err := c.Decode(stored, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// goccy/go-json's MarshalNoEscape skips HTML escaping of <, > and &, and
// encoded values keep non-ASCII characters literal instead of
// \u-escaping them.
func marshalJSON(v any) ([]byte, error) {
	return json.MarshalNoEscape(v)
}

func unmarshalJSON(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}
