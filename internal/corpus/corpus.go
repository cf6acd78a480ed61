package corpus

import (
	"sort"
	"strings"
)

// ChildKind distinguishes the two kinds of sub-records a catalogue item
// can carry.
type ChildKind string

const (
	ChildAttachment ChildKind = "attachment"
	ChildNote       ChildKind = "note"
)

// PDFContentType is the content type of PDF attachments in the catalogue.
const PDFContentType = "application/pdf"

// Child is a sub-record of an item: an attachment or a note.
type Child struct {
	Key         string    `json:"key"`
	Kind        ChildKind `json:"kind"`
	Title       string    `json:"title,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
}

// IsPDF reports whether the child is a PDF attachment.
func (c Child) IsPDF() bool {
	return c.Kind == ChildAttachment && c.ContentType == PDFContentType
}

// Item is a read-only view over one catalogue record.
type Item struct {
	Key         string  `json:"key"`
	Title       string  `json:"title"`
	ItemType    string  `json:"item_type"`
	Date        string  `json:"date,omitempty"`
	Publication string  `json:"publication,omitempty"`
	Children    []Child `json:"children"`
}

// Tag is one label from the folksonomy together with its usage.
// Items and ItemTitles are parallel lists: Items[i] and ItemTitles[i]
// describe the same association.
type Tag struct {
	Label      string   `json:"label"`
	Count      int      `json:"count"`
	Items      []string `json:"items"`
	ItemTitles []string `json:"item_titles"`
}

// Stats holds aggregate corpus metrics computed at extraction time.
type Stats struct {
	TotalItems           int     `json:"total_items"`
	ItemsWithTags        int     `json:"items_with_tags"`
	ItemsWithoutTags     int     `json:"items_without_tags"`
	UniqueTags           int     `json:"unique_tags"`
	TotalTagApplications int     `json:"total_tag_applications"`
	AvgTagsPerItem       float64 `json:"avg_tags_per_item"`
	MaxTagsPerItem       int     `json:"max_tags_per_item"`
	MinTagsPerItem       int     `json:"min_tags_per_item"`
}

// Snapshot is the immutable corpus a single analysis run operates on.
// Tags are kept in the stable enumeration order (case-insensitive label
// sort) so that tie-breaks downstream are deterministic across runs.
type Snapshot struct {
	GeneratedAt string
	Tags        []Tag
	Items       map[string]Item
	Stats       Stats
}

// Normalize lower-cases and trims a tag label or title for comparison.
// Labels remain case-preserving everywhere else.
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// SortTags puts tags into the snapshot's stable enumeration order.
func SortTags(tags []Tag) {
	sort.SliceStable(tags, func(i, j int) bool {
		ni, nj := Normalize(tags[i].Label), Normalize(tags[j].Label)
		if ni == nj {
			return tags[i].Label < tags[j].Label
		}
		return ni < nj
	})
}

// TagByLabel returns the tag with the given label, if present.
func (s *Snapshot) TagByLabel(label string) (Tag, bool) {
	for _, t := range s.Tags {
		if t.Label == label {
			return t, true
		}
	}
	return Tag{}, false
}

// TagsForItem derives the set of tag labels carried by an item. The item's
// tag set is never stored redundantly on the item itself.
func (s *Snapshot) TagsForItem(key string) []string {
	var labels []string
	for _, t := range s.Tags {
		for _, k := range t.Items {
			if k == key {
				labels = append(labels, t.Label)
				break
			}
		}
	}
	return labels
}
