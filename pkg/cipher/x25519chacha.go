package cipher

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

// ephemeralKeyLength is the length of an X25519 public or private key.
const ephemeralKeyLength = 32

// X25519ChaCha20Poly1305 wraps a per-block seal key for each recipient by
// ECDH-ing a fresh ephemeral keypair against the recipient's public key
// and XORing the shared secret over the seal key; the ephemeral public
// key travels alongside the wrapped key so the recipient can redo the
// ECDH. The block itself is sealed with ChaCha20-Poly1305.
type X25519ChaCha20Poly1305 struct{}

func (X25519ChaCha20Poly1305) KeyType() KeyType { return KeyTypeX25519ChaCha20 }

func (X25519ChaCha20Poly1305) GenerateKeyPair() (public, private []byte, err error) {
	priv, err := randomScalar()
	if err != nil {
		return nil, nil, err
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("cipher: derive x25519 public key: %w", err)
	}
	return pub, priv, nil
}

func (X25519ChaCha20Poly1305) SealKeyLength() int      { return chacha20poly1305.KeySize }
func (X25519ChaCha20Poly1305) SealMinNonceLength() int { return chacha20poly1305.NonceSize }

func (X25519ChaCha20Poly1305) SealPrivateKey(sealKey, nonce, private []byte) ([]byte, error) {
	return chachaSeal(sealKey, nonce, private)
}

func (X25519ChaCha20Poly1305) OpenPrivateKey(sealKey, nonce, crypted []byte) ([]byte, error) {
	return chachaOpen(sealKey, nonce, crypted)
}

func (c X25519ChaCha20Poly1305) Encrypt(recipients []RecipientKey, data []byte) (Header, []byte, error) {
	sealKey := make([]byte, c.SealKeyLength())
	if _, err := io.ReadFull(rand.Reader, sealKey); err != nil {
		return Header{}, nil, fmt.Errorf("cipher: generate seal key: %w", err)
	}
	nonce := make([]byte, c.SealMinNonceLength())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Header{}, nil, fmt.Errorf("cipher: generate nonce: %w", err)
	}
	content, err := chachaSeal(sealKey, nonce, data)
	if err != nil {
		return Header{}, nil, err
	}

	header := Header{Type: c.KeyType(), Nonce: nonce}
	for _, r := range recipients {
		if len(r.PublicKey) != ephemeralKeyLength {
			return Header{}, nil, fmt.Errorf("cipher: recipient %s: invalid x25519 public key length", r.ID)
		}
		ephPriv, err := randomScalar()
		if err != nil {
			return Header{}, nil, err
		}
		ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
		if err != nil {
			return Header{}, nil, fmt.Errorf("cipher: recipient %s: ephemeral key: %w", r.ID, err)
		}
		shared, err := curve25519.X25519(ephPriv, r.PublicKey)
		if err != nil {
			return Header{}, nil, fmt.Errorf("cipher: recipient %s: ecdh: %w", r.ID, err)
		}

		cryptedKey := make([]byte, ephemeralKeyLength+c.SealKeyLength())
		copy(cryptedKey[:ephemeralKeyLength], ephPub)
		xorBytes(cryptedKey[ephemeralKeyLength:], sealKey, shared)
		header.Recipients = append(header.Recipients, HeaderRecipient{ID: r.ID, CryptedKey: cryptedKey})
	}
	return header, content, nil
}

func (c X25519ChaCha20Poly1305) Decrypt(identityID string, privateKey []byte, header Header, crypted []byte) ([]byte, error) {
	if header.Type != c.KeyType() {
		return nil, fmt.Errorf("cipher: header type %q does not match x25519_chacha20_poly1305 suite", header.Type)
	}
	want := ephemeralKeyLength + c.SealKeyLength()
	for _, r := range header.Recipients {
		if r.ID != identityID {
			continue
		}
		if len(r.CryptedKey) != want {
			return nil, fmt.Errorf("cipher: recipient %s: invalid crypted key length", r.ID)
		}
		ephPub := r.CryptedKey[:ephemeralKeyLength]
		shared, err := curve25519.X25519(privateKey, ephPub)
		if err != nil {
			return nil, fmt.Errorf("cipher: ecdh: %w", err)
		}
		sealKey := make([]byte, c.SealKeyLength())
		xorBytes(sealKey, r.CryptedKey[ephemeralKeyLength:], shared)
		return chachaOpen(sealKey, header.Nonce, crypted)
	}
	return nil, ErrNoRecipient
}

func randomScalar() ([]byte, error) {
	priv := make([]byte, ephemeralKeyLength)
	if _, err := io.ReadFull(rand.Reader, priv); err != nil {
		return nil, fmt.Errorf("cipher: generate x25519 private key: %w", err)
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
	return priv, nil
}

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

func chachaSeal(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: chacha20poly1305: %w", err)
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

func chachaOpen(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: chacha20poly1305: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cipher: chacha20poly1305 open: %w", err)
	}
	return plaintext, nil
}
