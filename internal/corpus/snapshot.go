package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// snapshotSchema validates the structural shape of a snapshot file before
// any cross-reference checking. Semantic invariants (parallel lists,
// key references) are checked separately with specific error messages.
const snapshotSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["tags", "items"],
  "properties": {
    "metadata": {
      "type": "object",
      "properties": {
        "generated_at": {"type": "string"},
        "statistics": {"type": "object"}
      }
    },
    "tags": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["count", "items", "item_titles"],
        "properties": {
          "count": {"type": "integer", "minimum": 1},
          "items": {"type": "array", "items": {"type": "string"}},
          "item_titles": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "items": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["title", "item_type"],
        "properties": {
          "title": {"type": "string"},
          "item_type": {"type": "string"},
          "children": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["kind"],
              "properties": {
                "kind": {"type": "string", "enum": ["attachment", "note"]},
                "content_type": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("snapshot.schema.json", bytes.NewReader([]byte(snapshotSchema))); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("snapshot.schema.json")
	})
	return compiledSchema, schemaErr
}

// tagRecord and itemRecord mirror the on-disk snapshot contract: a mapping
// from tag label to usage info plus an item-detail lookup.
type tagRecord struct {
	Count      int      `json:"count"`
	Items      []string `json:"items"`
	ItemTitles []string `json:"item_titles"`
}

type itemRecord struct {
	Title       string  `json:"title"`
	ItemType    string  `json:"item_type"`
	Date        string  `json:"date,omitempty"`
	Publication string  `json:"publication,omitempty"`
	Children    []Child `json:"children,omitempty"`
}

type snapshotFile struct {
	Metadata struct {
		GeneratedAt string `json:"generated_at"`
		Statistics  Stats  `json:"statistics"`
	} `json:"metadata"`
	Tags  map[string]tagRecord  `json:"tags"`
	Items map[string]itemRecord `json:"items"`
}

// ParseSnapshot decodes, schema-validates and cross-checks a snapshot
// document. Contract violations fail loudly and name the offending key:
// they indicate an upstream producer bug, not something to guess around.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	schema, err := loadCompiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("snapshot failed schema validation: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := &Snapshot{
		GeneratedAt: file.Metadata.GeneratedAt,
		Items:       make(map[string]Item, len(file.Items)),
		Stats:       file.Metadata.Statistics,
	}

	for key, rec := range file.Items {
		snap.Items[key] = Item{
			Key:         key,
			Title:       rec.Title,
			ItemType:    rec.ItemType,
			Date:        rec.Date,
			Publication: rec.Publication,
			Children:    rec.Children,
		}
	}

	snap.Tags = make([]Tag, 0, len(file.Tags))
	for label, rec := range file.Tags {
		snap.Tags = append(snap.Tags, Tag{
			Label:      label,
			Count:      rec.Count,
			Items:      rec.Items,
			ItemTitles: rec.ItemTitles,
		})
	}
	SortTags(snap.Tags)

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// LoadSnapshot reads and parses a snapshot file from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// Validate enforces the corpus invariants: count == len(items), parallel
// items/item_titles lists, and every tag association resolving to a known
// item. An empty snapshot is valid.
func (s *Snapshot) Validate() error {
	for _, tag := range s.Tags {
		if tag.Count != len(tag.Items) {
			return fmt.Errorf("tag %q: count %d does not match %d item associations", tag.Label, tag.Count, len(tag.Items))
		}
		if len(tag.Items) != len(tag.ItemTitles) {
			return fmt.Errorf("tag %q: items and item_titles are not parallel (%d vs %d)", tag.Label, len(tag.Items), len(tag.ItemTitles))
		}
		for _, key := range tag.Items {
			if _, ok := s.Items[key]; !ok {
				return fmt.Errorf("tag %q references unknown item key %q", tag.Label, key)
			}
		}
	}
	return nil
}

// Marshal renders the snapshot back into its on-disk contract.
func (s *Snapshot) Marshal() ([]byte, error) {
	var file snapshotFile
	file.Metadata.GeneratedAt = s.GeneratedAt
	file.Metadata.Statistics = s.Stats

	file.Tags = make(map[string]tagRecord, len(s.Tags))
	for _, t := range s.Tags {
		file.Tags[t.Label] = tagRecord{Count: t.Count, Items: t.Items, ItemTitles: t.ItemTitles}
	}

	file.Items = make(map[string]itemRecord, len(s.Items))
	for key, it := range s.Items {
		file.Items[key] = itemRecord{
			Title:       it.Title,
			ItemType:    it.ItemType,
			Date:        it.Date,
			Publication: it.Publication,
			Children:    it.Children,
		}
	}

	return json.MarshalIndent(file, "", "  ")
}
