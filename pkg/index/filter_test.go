package index

import (
	"testing"
	"time"

	"github.com/trustless-go/trustless/pkg/vault"
)

func newEngineWithEntries(entries map[string]Entry) *Engine {
	e := New()
	e.Data.Entries = entries
	return e
}

func typePtr(t vault.SecretType) *vault.SecretType { return &t }
func strPtr(s string) *string                       { return &s }

func TestListFiltersByDeleted(t *testing.T) {
	e := newEngineWithEntries(map[string]Entry{
		"s1": {Name: "Mail", Deleted: false},
		"s2": {Name: "Old", Deleted: true},
	})

	list := e.List(vault.SecretListFilter{Deleted: false})
	if len(list.Entries) != 1 || list.Entries[0].Entry.ID != "s1" {
		t.Fatalf("expected only s1, got %+v", list.Entries)
	}

	list = e.List(vault.SecretListFilter{Deleted: true})
	if len(list.Entries) != 1 || list.Entries[0].Entry.ID != "s2" {
		t.Fatalf("expected only s2, got %+v", list.Entries)
	}
}

func TestListFiltersByType(t *testing.T) {
	e := newEngineWithEntries(map[string]Entry{
		"s1": {Name: "Mail", Type: vault.SecretTypeLogin},
		"s2": {Name: "Note", Type: vault.SecretTypeNote},
	})

	list := e.List(vault.SecretListFilter{Type: typePtr(vault.SecretTypeNote)})
	if len(list.Entries) != 1 || list.Entries[0].Entry.ID != "s2" {
		t.Fatalf("expected only s2, got %+v", list.Entries)
	}
}

func TestListFiltersByTagAndReturnsHighlights(t *testing.T) {
	e := newEngineWithEntries(map[string]Entry{
		"s1": {Name: "Mail", Tags: []string{"work", "email"}},
		"s2": {Name: "Bank", Tags: []string{"finance"}},
	})

	list := e.List(vault.SecretListFilter{Tag: strPtr("email")})
	if len(list.Entries) != 1 || list.Entries[0].Entry.ID != "s1" {
		t.Fatalf("expected only s1, got %+v", list.Entries)
	}
	if len(list.Entries[0].TagsHighlights) != 1 || list.Entries[0].TagsHighlights[0] != 1 {
		t.Fatalf("expected tag highlight at position 1, got %v", list.Entries[0].TagsHighlights)
	}
}

func TestListFuzzyNameFilterExcludesNonMatches(t *testing.T) {
	e := newEngineWithEntries(map[string]Entry{
		"s1": {Name: "GitHub Account"},
		"s2": {Name: "Bank Login"},
	})

	list := e.List(vault.SecretListFilter{Name: strPtr("gthb")})
	if len(list.Entries) != 1 || list.Entries[0].Entry.ID != "s1" {
		t.Fatalf("expected fuzzy match to find only s1, got %+v", list.Entries)
	}
	if list.Entries[0].NameScore <= 0 {
		t.Fatalf("expected a positive name score, got %d", list.Entries[0].NameScore)
	}

	list = e.List(vault.SecretListFilter{Name: strPtr("zzzznomatch")})
	if len(list.Entries) != 0 {
		t.Fatalf("expected no matches, got %+v", list.Entries)
	}
}

func TestListAllTagsUnionsAcrossNonTagFilteredEntries(t *testing.T) {
	e := newEngineWithEntries(map[string]Entry{
		"s1": {Name: "Mail", Tags: []string{"work"}},
		"s2": {Name: "Bank", Tags: []string{"finance", "work"}},
	})

	list := e.List(vault.SecretListFilter{})
	if len(list.AllTags) != 2 {
		t.Fatalf("expected 2 distinct tags, got %v", list.AllTags)
	}
}

func TestListWithoutNameFilterHasZeroScoreAndNoHighlights(t *testing.T) {
	e := newEngineWithEntries(map[string]Entry{
		"s1": {Name: "Mail", Timestamp: time.Now()},
	})
	list := e.List(vault.SecretListFilter{})
	if len(list.Entries) != 1 {
		t.Fatalf("expected one entry")
	}
	if list.Entries[0].NameScore != 0 || list.Entries[0].NameHighlights != nil {
		t.Fatalf("expected zero score and no highlights without a name filter, got %+v", list.Entries[0])
	}
}
