package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustless-go/trustless/pkg/blockstore"
	"github.com/trustless-go/trustless/pkg/vault"
)

func accessorFrom(versions map[string]vault.SecretVersion) VersionAccessor {
	return func(blockID string) (*vault.SecretVersion, error) {
		v, ok := versions[blockID]
		if !ok {
			return nil, nil
		}
		cp := v
		return &cp, nil
	}
}

func TestProcessChangeLogsBuildsNewEntry(t *testing.T) {
	e := New()
	versions := map[string]vault.SecretVersion{
		"b1": {SecretID: "s1", Name: "Mail", Type: vault.SecretTypeLogin, Timestamp: time.Unix(100, 0)},
	}
	logs := []blockstore.ChangeLog{
		{NodeID: "node1", Changes: []blockstore.Change{{Op: blockstore.Add, BlockID: "b1"}}},
	}

	changed, err := e.ProcessChangeLogs(logs, accessorFrom(versions))
	require.NoError(t, err)
	assert.True(t, changed, "expected changed=true for a new version")

	entry, ok := e.Entry("s1")
	require.True(t, ok, "expected entry for s1")
	assert.Equal(t, "Mail", entry.Name)
	assert.Equal(t, "b1", entry.CurrentBlockID)
}

func TestProcessChangeLogsNoOpOnEmptyDelta(t *testing.T) {
	e := New()
	versions := map[string]vault.SecretVersion{
		"b1": {SecretID: "s1", Name: "Mail", Timestamp: time.Unix(100, 0)},
	}
	logs := []blockstore.ChangeLog{
		{NodeID: "node1", Changes: []blockstore.Change{{Op: blockstore.Add, BlockID: "b1"}}},
	}
	_, err := e.ProcessChangeLogs(logs, accessorFrom(versions))
	require.NoError(t, err)

	changed, err := e.ProcessChangeLogs(logs, accessorFrom(versions))
	require.NoError(t, err)
	assert.False(t, changed, "expected no-op on already-processed logs")
}

func TestProcessChangeLogsIncrementalNewVersionUpdatesCurrent(t *testing.T) {
	e := New()
	versions := map[string]vault.SecretVersion{
		"b1": {SecretID: "s1", Name: "Mail v1", Timestamp: time.Unix(100, 0)},
	}
	logs := []blockstore.ChangeLog{
		{NodeID: "node1", Changes: []blockstore.Change{{Op: blockstore.Add, BlockID: "b1"}}},
	}
	_, err := e.ProcessChangeLogs(logs, accessorFrom(versions))
	require.NoError(t, err)

	versions["b2"] = vault.SecretVersion{SecretID: "s1", Name: "Mail v2", Timestamp: time.Unix(200, 0)}
	logs[0].Changes = append(logs[0].Changes, blockstore.Change{Op: blockstore.Add, BlockID: "b2"})

	changed, err := e.ProcessChangeLogs(logs, accessorFrom(versions))
	require.NoError(t, err)
	assert.True(t, changed, "expected changed=true after adding a newer version")

	entry, _ := e.Entry("s1")
	assert.Equal(t, "Mail v2", entry.Name)
	assert.Equal(t, "b2", entry.CurrentBlockID)
	assert.ElementsMatch(t, []string{"b1", "b2"}, entry.BlockIDs)
}

func TestProcessChangeLogsDeletingCurrentPicksNextNewest(t *testing.T) {
	e := New()
	versions := map[string]vault.SecretVersion{
		"b1": {SecretID: "s1", Name: "Mail v1", Timestamp: time.Unix(100, 0)},
		"b2": {SecretID: "s1", Name: "Mail v2", Timestamp: time.Unix(200, 0)},
	}
	logs := []blockstore.ChangeLog{
		{NodeID: "node1", Changes: []blockstore.Change{
			{Op: blockstore.Add, BlockID: "b1"},
			{Op: blockstore.Add, BlockID: "b2"},
		}},
	}
	_, err := e.ProcessChangeLogs(logs, accessorFrom(versions))
	require.NoError(t, err)

	logs[0].Changes = append(logs[0].Changes, blockstore.Change{Op: blockstore.Delete, BlockID: "b2"})
	changed, err := e.ProcessChangeLogs(logs, accessorFrom(versions))
	require.NoError(t, err)
	assert.True(t, changed, "expected changed=true after deleting current block")

	entry, _ := e.Entry("s1")
	assert.Equal(t, "b1", entry.CurrentBlockID)
	assert.Equal(t, "Mail v1", entry.Name)
}

func TestProcessChangeLogsAddThenDeleteSameBlockIsNoOp(t *testing.T) {
	e := New()
	versions := map[string]vault.SecretVersion{
		"b1": {SecretID: "s1", Name: "Mail", Timestamp: time.Unix(100, 0)},
	}
	logs := []blockstore.ChangeLog{
		{NodeID: "node1", Changes: []blockstore.Change{
			{Op: blockstore.Add, BlockID: "b1"},
			{Op: blockstore.Delete, BlockID: "b1"},
		}},
	}
	changed, err := e.ProcessChangeLogs(logs, accessorFrom(versions))
	require.NoError(t, err)
	assert.False(t, changed, "expected no-op when a block is added and deleted in the same delta")

	_, ok := e.Entry("s1")
	assert.False(t, ok, "expected no entry for a secret whose only block was deleted")
}

func TestProcessChangeLogsConfluentAcrossSplit(t *testing.T) {
	versions := map[string]vault.SecretVersion{
		"b1": {SecretID: "s1", Name: "Mail v1", Timestamp: time.Unix(100, 0)},
		"b2": {SecretID: "s1", Name: "Mail v2", Timestamp: time.Unix(200, 0)},
		"b3": {SecretID: "s2", Name: "Bank", Timestamp: time.Unix(150, 0)},
	}
	full := []blockstore.ChangeLog{
		{NodeID: "node1", Changes: []blockstore.Change{
			{Op: blockstore.Add, BlockID: "b1"},
			{Op: blockstore.Add, BlockID: "b2"},
			{Op: blockstore.Add, BlockID: "b3"},
		}},
	}

	whole := New()
	_, err := whole.ProcessChangeLogs(full, accessorFrom(versions))
	require.NoError(t, err)

	split := New()
	prefix := []blockstore.ChangeLog{
		{NodeID: "node1", Changes: full[0].Changes[:1]},
	}
	_, err = split.ProcessChangeLogs(prefix, accessorFrom(versions))
	require.NoError(t, err)
	_, err = split.ProcessChangeLogs(full, accessorFrom(versions))
	require.NoError(t, err)

	// Confluence: processing the full log directly must equal processing
	// a prefix first and then the remainder, per the index's stated
	// ordering-independence invariant.
	assert.Equal(t, whole.Data, split.Data)
}

func TestLoadBytesRoundtrip(t *testing.T) {
	e := New()
	versions := map[string]vault.SecretVersion{
		"b1": {SecretID: "s1", Name: "Mail", Timestamp: time.Unix(100, 0)},
	}
	logs := []blockstore.ChangeLog{
		{NodeID: "node1", Changes: []blockstore.Change{{Op: blockstore.Add, BlockID: "b1"}}},
	}
	_, err := e.ProcessChangeLogs(logs, accessorFrom(versions))
	require.NoError(t, err)

	raw, err := e.Bytes()
	require.NoError(t, err)
	loaded, err := Load(raw)
	require.NoError(t, err)

	entry, ok := loaded.Entry("s1")
	require.True(t, ok)
	assert.Equal(t, "Mail", entry.Name)
}
