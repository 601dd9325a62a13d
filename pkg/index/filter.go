package index

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/trustless-go/trustless/pkg/vault"
)

// List applies filter to every entry, per §4.H's Filtering rules:
// deleted and type are exact-match gates, tag requires presence among
// an entry's tags, and name is a fuzzy best-match scorer that excludes
// non-matching entries. all_tags collects tags from every entry that
// passed every filter except the tag filter itself.
func (e *Engine) List(filter vault.SecretListFilter) vault.SecretList {
	allTagsSet := make(map[string]bool)
	var matches []vault.SecretEntryMatch

	secretIDs := make([]string, 0, len(e.Data.Entries))
	for id := range e.Data.Entries {
		secretIDs = append(secretIDs, id)
	}
	sort.Strings(secretIDs)

	for _, secretID := range secretIDs {
		entry := e.Data.Entries[secretID]

		if entry.Deleted != filter.Deleted {
			continue
		}
		if filter.Type != nil && *filter.Type != entry.Type {
			continue
		}

		var nameScore int
		var nameHighlights []int
		if filter.Name != nil {
			score, highlights, ok := matchName(*filter.Name, entry.Name)
			if !ok {
				continue
			}
			nameScore, nameHighlights = score, highlights
		}

		for _, tag := range entry.Tags {
			allTagsSet[tag] = true
		}

		var tagsHighlights []int
		if filter.Tag != nil {
			tagsHighlights = tagPositions(entry.Tags, *filter.Tag)
			if len(tagsHighlights) == 0 {
				continue
			}
		}

		matches = append(matches, vault.SecretEntryMatch{
			Entry: vault.SecretEntry{
				ID:        secretID,
				Name:      entry.Name,
				Type:      entry.Type,
				Tags:      entry.Tags,
				URLs:      entry.URLs,
				Timestamp: entry.Timestamp,
				Deleted:   entry.Deleted,
			},
			NameScore:      nameScore,
			NameHighlights: nameHighlights,
			TagsHighlights: tagsHighlights,
		})
	}

	allTags := make([]string, 0, len(allTagsSet))
	for tag := range allTagsSet {
		allTags = append(allTags, tag)
	}
	sort.Strings(allTags)

	return vault.SecretList{AllTags: allTags, Entries: matches}
}

func matchName(pattern, name string) (score int, highlights []int, ok bool) {
	found := fuzzy.Find(pattern, []string{name})
	if len(found) == 0 {
		return 0, nil, false
	}
	return found[0].Score, found[0].MatchedIndexes, true
}

func tagPositions(tags []string, tag string) []int {
	var positions []int
	for i, t := range tags {
		if t == tag {
			positions = append(positions, i)
		}
	}
	return positions
}
