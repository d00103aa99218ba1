// Package bundle assembles the exported document and writes it next to the
// attachments.
package bundle

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/skyportal/dump/blob"
	"gopkg.in/yaml.v3"
)

const (
	DataFile   = "data.yaml"
	ParamsFile = "config_used.yaml"
)

type section struct {
	name  string
	items []any
}

// Document is an ordered set of named record lists. Sections are written
// in the order they were added.
type Document struct {
	sections []section
}

// AddSection appends a section. Adding a name twice appends another
// section with that name, which the importer rejects, so callers add each
// section once.
func AddSection[T any](d *Document, name string, items []T) {
	s := section{name: name, items: make([]any, 0, len(items))}
	for _, item := range items {
		s.items = append(s.items, item)
	}
	d.sections = append(d.sections, s)
}

func (d *Document) Sections() []string {
	names := make([]string, 0, len(d.sections))
	for _, s := range d.sections {
		names = append(names, s.name)
	}
	return names
}

// Len reports the number of items in the named section.
func (d *Document) Len(name string) int {
	for _, s := range d.sections {
		if s.name == name {
			return len(s.items)
		}
	}
	return 0
}

// Write emits the document as YAML with a blank line after every section
// and after every item in it. The blank lines are cosmetic and follow the
// layout of the catalog's own dump files.
func (d *Document) Write(w io.Writer) error {
	for _, s := range d.sections {
		if len(s.items) == 0 {
			if _, err := fmt.Fprintf(w, "%s: []\n\n", s.name); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "%s:\n", s.name); err != nil {
			return err
		}
		for _, item := range s.items {
			b, err := encode([]any{item})
			if err != nil {
				return fmt.Errorf("section %s: %w", s.name, err)
			}
			if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
				return err
			}
		}
	}
	return nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Param is one run parameter recorded in config_used.yaml.
type Param struct {
	Key   string
	Value any
}

// WriteParams emits params as a flat mapping in order.
func WriteParams(w io.Writer, params []Param) error {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range params {
		var v yaml.Node
		if err := v.Encode(p.Value); err != nil {
			return fmt.Errorf("param %s: %w", p.Key, err)
		}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: p.Key}, &v)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes the document to data.yaml in store.
func Save(ctx context.Context, store blob.Store, doc *Document) (blob.Info, error) {
	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return blob.Info{}, err
	}
	return store.Put(ctx, DataFile, &buf, blob.PutOptions{ContentType: "application/yaml"})
}

// SaveParams writes config_used.yaml in store.
func SaveParams(ctx context.Context, store blob.Store, params []Param) (blob.Info, error) {
	var buf bytes.Buffer
	if err := WriteParams(&buf, params); err != nil {
		return blob.Info{}, err
	}
	return store.Put(ctx, ParamsFile, &buf, blob.PutOptions{ContentType: "application/yaml"})
}
