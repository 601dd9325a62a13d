/*
Package secret encodes and decodes SecretVersions to and from the bytes
a block store holds: JSON serialization, NonZeroPadding (JSON text never
contains a raw NUL byte, so the non-zero scheme always applies here),
then pkg/cipher's multi-lane pipeline, with the sealed {headers,
content} block itself written out as JSON too.
*/
package secret

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/trustless-go/trustless/pkg/cipher"
	"github.com/trustless-go/trustless/pkg/padding"
	"github.com/trustless-go/trustless/pkg/vault"
)

// Align is the padding block size applied before encryption.
const Align = 512

// ErrMalformedBlock is returned by Decode when the stored bytes are not
// a valid serialized cipher.Block.
var ErrMalformedBlock = errors.New("secret: malformed block")

// Codec serializes SecretVersions into blocks and back, sealing them
// with Pipeline.
type Codec struct {
	Pipeline cipher.Pipeline
}

// Encode pads and seals version for its listed recipients, resolved
// through keys, and returns the bytes ready to hand to
// blockstore.Store.AddBlock.
func (c Codec) Encode(keys cipher.RecipientKeySource, version vault.SecretVersion) ([]byte, error) {
	raw, err := json.Marshal(version)
	if err != nil {
		return nil, fmt.Errorf("secret: marshal version: %w", err)
	}
	padded := padding.PadNonZero(raw, Align)

	block, err := c.Pipeline.Encrypt(version.Recipients, keys, padded)
	if err != nil {
		return nil, fmt.Errorf("secret: encrypt: %w", err)
	}

	out, err := json.Marshal(block)
	if err != nil {
		return nil, fmt.Errorf("secret: marshal block: %w", err)
	}
	return out, nil
}

// Decode is Encode's strict inverse: unmarshal the block, decrypt it as
// identityID, unpad, and unmarshal the SecretVersion. Any failure at
// any stage returns an error with no partial SecretVersion.
func Decode(identityID string, keys cipher.PrivateKeySource, pipeline cipher.Pipeline, blockBytes []byte) (vault.SecretVersion, error) {
	var block cipher.Block
	if err := json.Unmarshal(blockBytes, &block); err != nil {
		return vault.SecretVersion{}, fmt.Errorf("%w: %v", ErrMalformedBlock, err)
	}

	padded, err := pipeline.Decrypt(identityID, keys, block)
	if err != nil {
		return vault.SecretVersion{}, err
	}

	raw, err := padding.UnpadNonZero(padded)
	if err != nil {
		return vault.SecretVersion{}, fmt.Errorf("secret: unpad: %w", err)
	}

	var version vault.SecretVersion
	if err := json.Unmarshal(raw, &version); err != nil {
		return vault.SecretVersion{}, fmt.Errorf("secret: unmarshal version: %w", err)
	}
	return version, nil
}

// Decode is a convenience method mirroring Decode but reading Pipeline
// from the Codec.
func (c Codec) Decode(identityID string, keys cipher.PrivateKeySource, blockBytes []byte) (vault.SecretVersion, error) {
	return Decode(identityID, keys, c.Pipeline, blockBytes)
}

// EncodeBlock seals an arbitrary byte payload (the serialized index,
// which is JSON and therefore may itself be free of NUL bytes, but is
// treated as opaque data here) for recipients using RandomFrontBack
// padding rather than the NonZero scheme Encode uses for SecretVersions.
func EncodeBlock(pipeline cipher.Pipeline, keys cipher.RecipientKeySource, recipients []string, data []byte) ([]byte, error) {
	padded := padding.PadRandomFrontBack(data, Align)

	block, err := pipeline.Encrypt(recipients, keys, padded)
	if err != nil {
		return nil, fmt.Errorf("secret: encrypt block: %w", err)
	}

	out, err := json.Marshal(block)
	if err != nil {
		return nil, fmt.Errorf("secret: marshal block: %w", err)
	}
	return out, nil
}

// DecodeBlock is EncodeBlock's inverse.
func DecodeBlock(identityID string, keys cipher.PrivateKeySource, pipeline cipher.Pipeline, blockBytes []byte) ([]byte, error) {
	var block cipher.Block
	if err := json.Unmarshal(blockBytes, &block); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlock, err)
	}

	padded, err := pipeline.Decrypt(identityID, keys, block)
	if err != nil {
		return nil, err
	}

	raw, err := padding.UnpadRandomFrontBack(padded)
	if err != nil {
		return nil, fmt.Errorf("secret: unpad block: %w", err)
	}
	return raw, nil
}
