/*
Package blockstore defines the Store interface this module persists
everything through: content-addressed blocks, versioned rings, per-node
change logs, and per-identity indexes. Five concrete implementations are
provided in subpackages (memstore, localdir, boltstore, remote,
syncstore); callers depend only on the Store interface defined here.
*/
package blockstore
