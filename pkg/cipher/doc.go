/*
Package cipher implements the block-level encryption suites and the
multi-lane orchestration that combines them. A suite seals a block of
bytes for a set of recipients, each identified by a public key, and
produces a Header carrying one wrapped seal key per recipient plus
whatever that suite needs to reopen the block (a nonce, an algorithm
tag). A Pipeline chains suites so a block is readable only by an
identity that is a recipient under every lane.

Two suites are implemented: RSAAESGCM (RSA-4096 OAEP key wrap around
AES-256-GCM) and X25519ChaCha20Poly1305 (ephemeral ECDH key agreement
around ChaCha20-Poly1305). Key material for both is generated and
stored by package ring; this package never persists anything itself.
*/
package cipher
