package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/fernet/fernet-go"
	hex "github.com/tmthrgd/go-hex"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/chacha20poly1305"
)

// envelope is the msgpack-framed, hex-encoded record stored in place of the
// plaintext JSON once encryption is enabled. Algo lets Decode recognize the
// mode a given row was written with even if the handle's configured mode
// later changes, and Nonce/Ciphertext carry the AEAD material; fernet mode
// instead stores its own self-framing token in Token and leaves the other
// two fields empty.
type envelope struct {
	Algo       string `msgpack:"a"`
	Nonce      []byte `msgpack:"n,omitempty"`
	Ciphertext []byte `msgpack:"c,omitempty"`
	Token      []byte `msgpack:"t,omitempty"`
}

// encryptor is the internal seal/open contract implemented by each mode.
type encryptor interface {
	Seal(plaintext []byte) (string, error)
	Open(stored string) ([]byte, error)
}

func newEncryptor(mode Mode, key []byte) (encryptor, error) {
	switch mode {
	case ModeNone:
		if len(key) != 0 {
			return nil, fmt.Errorf("codec: encryption key set without an encryption mode")
		}
		return nil, nil
	case ModeAESGCM:
		return newAEADEncryptor("aes-gcm", key, newAESGCM)
	case ModeChaCha20:
		return newAEADEncryptor("chacha20", key, newChaCha20Poly1305)
	case ModeFernet:
		return newFernetEncryptor(key)
	default:
		return nil, fmt.Errorf("codec: unknown encryption mode %q", mode)
	}
}

// --- shared AEAD envelope (aes-gcm / chacha20-poly1305) ---

type aeadFactory func(key []byte) (cipher.AEAD, error)

type aeadEncryptor struct {
	algo string
	aead cipher.AEAD
}

func newAEADEncryptor(algo string, key []byte, factory aeadFactory) (*aeadEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("codec: %s requires a 32-byte key, got %d bytes", algo, len(key))
	}
	aead, err := factory(key)
	if err != nil {
		return nil, fmt.Errorf("codec: initialize %s: %w", algo, err)
	}
	return &aeadEncryptor{algo: algo, aead: aead}, nil
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func newChaCha20Poly1305(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key)
}

func (e *aeadEncryptor) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := e.aead.Seal(nil, nonce, plaintext, nil)

	framed, err := msgpack.Marshal(&envelope{
		Algo:       e.algo,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return "", fmt.Errorf("frame envelope: %w", err)
	}

	return hex.EncodeToString(framed), nil
}

func (e *aeadEncryptor) Open(stored string) ([]byte, error) {
	framed, err := hex.DecodeString(stored)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var env envelope
	if err := msgpack.Unmarshal(framed, &env); err != nil {
		return nil, fmt.Errorf("unframe envelope: %w", err)
	}
	if env.Algo != e.algo {
		return nil, fmt.Errorf("envelope algorithm %q does not match configured mode %q", env.Algo, e.algo)
	}
	if len(env.Nonce) != e.aead.NonceSize() {
		return nil, fmt.Errorf("envelope nonce has wrong size")
	}

	plaintext, err := e.aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return plaintext, nil
}

// --- fernet envelope ---

type fernetEncryptor struct {
	key *fernet.Key
}

func newFernetEncryptor(key []byte) (*fernetEncryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("codec: fernet requires a 32-byte key, got %d bytes", len(key))
	}
	var k fernet.Key
	copy(k[:], key)
	return &fernetEncryptor{key: &k}, nil
}

func (e *fernetEncryptor) Seal(plaintext []byte) (string, error) {
	token, err := fernet.EncryptAndSign(plaintext, e.key)
	if err != nil {
		return "", fmt.Errorf("fernet seal: %w", err)
	}

	framed, err := msgpack.Marshal(&envelope{Algo: string(ModeFernet), Token: token})
	if err != nil {
		return "", fmt.Errorf("frame envelope: %w", err)
	}
	return hex.EncodeToString(framed), nil
}

func (e *fernetEncryptor) Open(stored string) ([]byte, error) {
	framed, err := hex.DecodeString(stored)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var env envelope
	if err := msgpack.Unmarshal(framed, &env); err != nil {
		return nil, fmt.Errorf("unframe envelope: %w", err)
	}
	if env.Algo != string(ModeFernet) {
		return nil, fmt.Errorf("envelope algorithm %q does not match configured mode %q", env.Algo, ModeFernet)
	}

	plaintext := fernet.VerifyAndDecrypt(env.Token, 0, []*fernet.Key{e.key})
	if plaintext == nil {
		return nil, fmt.Errorf("authentication failed")
	}
	return plaintext, nil
}
