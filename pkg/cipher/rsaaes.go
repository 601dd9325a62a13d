package cipher

import (
	"crypto/aes"
	cryptocipher "crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"io"
)

// RSAKeyBits is the modulus size used for every generated identity
// keypair in this suite.
const RSAKeyBits = 4096

// RSAAESGCM wraps a per-block AES-256-GCM seal key with RSA-OAEP for each
// recipient. No third-party library in this module's dependency set
// implements RSA or AES-GCM more defensibly than the standard library's
// audited, constant-time implementations, so this suite is built directly
// on crypto/rsa, crypto/aes and crypto/cipher.
type RSAAESGCM struct{}

func (RSAAESGCM) KeyType() KeyType { return KeyTypeRSAAESGCM }

func (RSAAESGCM) GenerateKeyPair() (public, private []byte, err error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("cipher: generate rsa key: %w", err)
	}
	pubDER := x509.MarshalPKCS1PublicKey(&priv.PublicKey)
	privDER := x509.MarshalPKCS1PrivateKey(priv)
	return pubDER, privDER, nil
}

func (RSAAESGCM) SealKeyLength() int      { return 32 }
func (RSAAESGCM) SealMinNonceLength() int { return 12 }

func (RSAAESGCM) SealPrivateKey(sealKey, nonce, private []byte) ([]byte, error) {
	return aesGCMSeal(sealKey, nonce, private)
}

func (RSAAESGCM) OpenPrivateKey(sealKey, nonce, crypted []byte) ([]byte, error) {
	return aesGCMOpen(sealKey, nonce, crypted)
}

func (c RSAAESGCM) Encrypt(recipients []RecipientKey, data []byte) (Header, []byte, error) {
	sealKey := make([]byte, c.SealKeyLength())
	if _, err := io.ReadFull(rand.Reader, sealKey); err != nil {
		return Header{}, nil, fmt.Errorf("cipher: generate seal key: %w", err)
	}
	nonce := make([]byte, c.SealMinNonceLength())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Header{}, nil, fmt.Errorf("cipher: generate nonce: %w", err)
	}
	content, err := aesGCMSeal(sealKey, nonce, data)
	if err != nil {
		return Header{}, nil, err
	}

	header := Header{Type: c.KeyType(), Nonce: nonce}
	for _, r := range recipients {
		pub, err := x509.ParsePKCS1PublicKey(r.PublicKey)
		if err != nil {
			return Header{}, nil, fmt.Errorf("cipher: recipient %s: invalid rsa public key: %w", r.ID, err)
		}
		cryptedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, sealKey, nil)
		if err != nil {
			return Header{}, nil, fmt.Errorf("cipher: recipient %s: wrap seal key: %w", r.ID, err)
		}
		header.Recipients = append(header.Recipients, HeaderRecipient{ID: r.ID, CryptedKey: cryptedKey})
	}
	return header, content, nil
}

func (c RSAAESGCM) Decrypt(identityID string, privateKey []byte, header Header, crypted []byte) ([]byte, error) {
	if header.Type != c.KeyType() {
		return nil, fmt.Errorf("cipher: header type %q does not match rsa_aes_gcm suite", header.Type)
	}
	for _, r := range header.Recipients {
		if r.ID != identityID {
			continue
		}
		priv, err := x509.ParsePKCS1PrivateKey(privateKey)
		if err != nil {
			return nil, fmt.Errorf("cipher: invalid rsa private key: %w", err)
		}
		sealKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, r.CryptedKey, nil)
		if err != nil {
			return nil, fmt.Errorf("cipher: unwrap seal key: %w", err)
		}
		return aesGCMOpen(sealKey, header.Nonce, crypted)
	}
	return nil, ErrNoRecipient
}

func aesGCMSeal(key, nonce, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: aes: %w", err)
	}
	gcm, err := cryptocipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: gcm: %w", err)
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

func aesGCMOpen(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: aes: %w", err)
	}
	gcm, err := cryptocipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher: gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cipher: gcm open: %w", err)
	}
	return plaintext, nil
}
