package fields

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the file format of a field set export.
type Document struct {
	Scope  string         `yaml:"scope,omitempty"`
	Fields []DynamicField `yaml:"fields"`
}

// MarshalYAML encodes the fields of scope as a Document.
func MarshalYAML(scope string, fields []DynamicField) ([]byte, error) {
	b, err := yaml.Marshal(Document{Scope: scope, Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("encoding fields: %w", err)
	}
	return b, nil
}

// UnmarshalYAML decodes a Document.
func UnmarshalYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decoding fields: %w", err)
	}
	return doc, nil
}

// Drafts turns the document fields, by order, into new drafts bound to reg.
// Ids are dropped so that importing creates fresh, active fields.
func (d Document) Drafts(reg *Registry) []*Draft {
	out := make([]*Draft, 0, len(d.Fields))
	for _, f := range sorted(d.Fields) {
		dr := DraftOf(reg, f)
		dr.ID = ""
		out = append(out, dr)
	}
	return out
}
