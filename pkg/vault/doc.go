/*
Package vault holds the domain model shared by pkg/ring, pkg/secret,
pkg/index and pkg/store: identities, secret versions and their
denormalized index entries, and the facade's status/filter shapes. It
holds types plus small lookups on them (such as
SecretType.PasswordProperties), so every layer above the block
store can agree on one vocabulary without importing each other.
*/
package vault
