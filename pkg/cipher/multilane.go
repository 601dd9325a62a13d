package cipher

import "fmt"

// Block is a block's on-disk shape: one Header per cipher suite applied,
// in application order (innermost first), plus the outermost ciphertext.
type Block struct {
	Headers []Header
	Content []byte
}

// RecipientKeySource resolves a recipient identity's public key for a
// given suite's key type, so a Pipeline can build the per-suite recipient
// list without knowing where keys are stored.
type RecipientKeySource interface {
	PublicKey(identityID string, keyType KeyType) ([]byte, error)
}

// PrivateKeySource resolves the calling identity's own private key for a
// given suite's key type.
type PrivateKeySource interface {
	PrivateKey(keyType KeyType) (key []byte, ok bool)
}

// Pipeline is a fixed, ordered list of cipher suites applied to every
// block. The first suite is innermost: applied first on Encrypt, and
// unwrapped last on Decrypt. New rings always use every configured suite;
// an older ring opened against a newer Pipeline simply never produces
// headers for a suite it predates, which Decrypt tolerates as long as the
// identity is a recipient under every header the block actually carries.
type Pipeline struct {
	Suites []Suite
}

func NewPipeline(suites ...Suite) Pipeline {
	return Pipeline{Suites: suites}
}

// DefaultPipeline is the suite order new rings are created with: RSA-OAEP
// wrapping innermost, X25519 ECDH wrapping the already-RSA-sealed content.
func DefaultPipeline() Pipeline {
	return NewPipeline(RSAAESGCM{}, X25519ChaCha20Poly1305{})
}

// Encrypt applies every suite in order, each wrapping the previous
// suite's ciphertext (or data, for the first suite) and producing its own
// header.
func (p Pipeline) Encrypt(recipients []string, keys RecipientKeySource, data []byte) (Block, error) {
	content := data
	headers := make([]Header, 0, len(p.Suites))
	for _, suite := range p.Suites {
		recipientKeys := make([]RecipientKey, 0, len(recipients))
		for _, id := range recipients {
			pub, err := keys.PublicKey(id, suite.KeyType())
			if err != nil {
				return Block{}, fmt.Errorf("cipher: recipient %s has no %s key: %w", id, suite.KeyType(), err)
			}
			recipientKeys = append(recipientKeys, RecipientKey{ID: id, PublicKey: pub})
		}
		header, ciphertext, err := suite.Encrypt(recipientKeys, content)
		if err != nil {
			return Block{}, err
		}
		headers = append(headers, header)
		content = ciphertext
	}
	return Block{Headers: headers, Content: content}, nil
}

// CheckRecipient reports whether identityID is a recipient under every
// header the block carries. A block with no headers at all (an empty
// Pipeline) is vacuously readable by anyone, matching an empty AND.
func (p Pipeline) CheckRecipient(identityID string, block Block) bool {
	for _, header := range block.Headers {
		if !headerHasRecipient(header, identityID) {
			return false
		}
	}
	return true
}

func headerHasRecipient(header Header, identityID string) bool {
	for _, r := range header.Recipients {
		if r.ID == identityID {
			return true
		}
	}
	return false
}

// Decrypt unwraps a block's headers in reverse application order
// (outermost first). If identityID is missing from any single header,
// Decrypt returns ErrNoRecipient immediately without attempting to
// unwrap any layer, mirroring the all-recipients-must-match semantics of
// CheckRecipient.
func (p Pipeline) Decrypt(identityID string, keys PrivateKeySource, block Block) ([]byte, error) {
	if !p.CheckRecipient(identityID, block) {
		return nil, ErrNoRecipient
	}

	content := block.Content
	for i := len(block.Headers) - 1; i >= 0; i-- {
		header := block.Headers[i]
		suite := p.findSuite(header.Type)
		if suite == nil {
			return nil, fmt.Errorf("cipher: block references unknown cipher suite %q", header.Type)
		}
		privateKey, ok := keys.PrivateKey(suite.KeyType())
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPrivateKey, suite.KeyType())
		}
		plaintext, err := suite.Decrypt(identityID, privateKey, header, content)
		if err != nil {
			return nil, err
		}
		content = plaintext
	}
	return content, nil
}

func (p Pipeline) findSuite(t KeyType) Suite {
	for _, s := range p.Suites {
		if s.KeyType() == t {
			return s
		}
	}
	return nil
}
