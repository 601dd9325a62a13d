package blockstore

// Op is the kind of a single Change: a block becoming current or being
// superseded.
type Op int

const (
	Add Op = iota
	Delete
)

func (o Op) String() string {
	switch o {
	case Add:
		return "A"
	case Delete:
		return "D"
	default:
		return "?"
	}
}

// Change is one entry in a ChangeLog.
type Change struct {
	Op      Op
	BlockID string
}

// ChangeLog is the ordered, append-only list of changes authored by one
// node.
type ChangeLog struct {
	NodeID  string
	Changes []Change
}

// RingSummary is one entry of ListRingIDs: a ring id and the highest
// version this store currently holds for it.
type RingSummary struct {
	RingID  string
	Version uint64
}

// Store is the block store abstraction every component in this module is
// built on: content-addressed blocks, versioned rings, per-node change
// logs, and per-identity index blobs. Implementations serialize writers
// internally; readers may proceed concurrently with other readers
// (§5 of the governing design).
type Store interface {
	// NodeID identifies the local writer. Change logs and append-only
	// block ids are scoped to it.
	NodeID() string

	// ListRingIDs returns every ring id known to this store along with
	// the highest version held for it.
	ListRingIDs() ([]RingSummary, error)

	// GetRing returns the highest-version bytes stored for ringID.
	// An error of kind InvalidBlock if no ring with that id exists.
	GetRing(ringID string) (version uint64, data []byte, err error)

	// StoreRing writes a new ring version. Kind Conflict if (ringID,
	// version) already exists.
	StoreRing(ringID string, version uint64, data []byte) error

	// ChangeLogs returns every change log this store holds, one per
	// node that has ever committed to it.
	ChangeLogs() ([]ChangeLog, error)

	// GetIndex returns the stored index bytes for indexID, or ok=false
	// if none has been stored yet.
	GetIndex(indexID string) (data []byte, ok bool, err error)

	// StoreIndex replaces the stored index bytes for indexID.
	StoreIndex(indexID string, data []byte) error

	// AddBlock persists data and returns its block id. In
	// content-addressed stores this is idempotent: adding identical
	// bytes twice returns the same id without growing the store.
	AddBlock(data []byte) (blockID string, err error)

	// GetBlock returns the bytes of a previously added block. Kind
	// InvalidBlock if blockID is unknown.
	GetBlock(blockID string) ([]byte, error)

	// Commit appends changes to the local node's change log. Kind
	// Conflict if any change already appears in that log.
	Commit(changes []Change) error

	// UpdateChangeLog overwrites a foreign node's change log. Used only
	// by the synchronizer.
	UpdateChangeLog(log ChangeLog) error
}
