package extract

import (
	"time"

	"tagaudit/internal/catalogue"
	"tagaudit/internal/corpus"
)

// BuildSnapshot aggregates fetched catalogue items into the corpus
// snapshot the engine consumes. For every unique tag it tracks the usage
// count and the parallel item-key/title lists; titles exist purely for
// human-readable reporting.
//
// Child items (attachments, notes) appear in the catalogue's item listing
// as records of their own. They are folded into their parent via
// childrenByKey and excluded from the item lookup, so the snapshot's items
// are the top-level records the quality categoriser classifies.
func BuildSnapshot(items []catalogue.Item, childrenByKey map[string][]catalogue.Item) *corpus.Snapshot {
	snap := &corpus.Snapshot{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Items:       make(map[string]corpus.Item),
	}

	tagIndex := make(map[string]int)
	tagsPerItem := make(map[string]int)

	for _, item := range items {
		if item.Data.ParentItem != "" {
			continue
		}

		title := item.Data.Title
		if title == "" {
			title = "[No Title]"
		}

		snap.Items[item.Key] = corpus.Item{
			Key:         item.Key,
			Title:       title,
			ItemType:    item.Data.ItemType,
			Date:        item.Data.Date,
			Publication: item.Data.PublicationTitle,
			Children:    convertChildren(childrenByKey[item.Key]),
		}

		for _, raw := range item.Data.Tags {
			if raw.Tag == "" {
				continue
			}
			idx, ok := tagIndex[raw.Tag]
			if !ok {
				idx = len(snap.Tags)
				tagIndex[raw.Tag] = idx
				snap.Tags = append(snap.Tags, corpus.Tag{Label: raw.Tag})
			}
			tag := &snap.Tags[idx]
			tag.Count++
			tag.Items = append(tag.Items, item.Key)
			tag.ItemTitles = append(tag.ItemTitles, title)
			tagsPerItem[item.Key]++
		}
	}

	corpus.SortTags(snap.Tags)
	snap.Stats = computeStats(snap, tagsPerItem)
	return snap
}

func convertChildren(raw []catalogue.Item) []corpus.Child {
	var children []corpus.Child
	for _, child := range raw {
		kind := corpus.ChildAttachment
		if child.Data.ItemType == "note" {
			kind = corpus.ChildNote
		}
		children = append(children, corpus.Child{
			Key:         child.Key,
			Kind:        kind,
			Title:       child.Data.Title,
			Filename:    child.Data.Filename,
			ContentType: child.Data.ContentType,
		})
	}
	return children
}

// computeStats derives the aggregate corpus metrics. Average, max and min
// cover tagged items only, so the untagged majority does not drag the
// average toward zero.
func computeStats(snap *corpus.Snapshot, tagsPerItem map[string]int) corpus.Stats {
	stats := corpus.Stats{
		TotalItems: len(snap.Items),
		UniqueTags: len(snap.Tags),
	}

	for _, tag := range snap.Tags {
		stats.TotalTagApplications += tag.Count
	}

	for _, n := range tagsPerItem {
		stats.ItemsWithTags++
		if n > stats.MaxTagsPerItem {
			stats.MaxTagsPerItem = n
		}
		if stats.MinTagsPerItem == 0 || n < stats.MinTagsPerItem {
			stats.MinTagsPerItem = n
		}
	}
	stats.ItemsWithoutTags = stats.TotalItems - stats.ItemsWithTags
	if stats.ItemsWithTags > 0 {
		stats.AvgTagsPerItem = float64(stats.TotalTagApplications) / float64(stats.ItemsWithTags)
	}
	return stats
}
