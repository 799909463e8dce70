package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Entry is a single element of a medical record list. Records written by the
// registration form hold bare strings while records written by the extraction
// pipeline hold documents, so an entry carries either Fields or Text.
type Entry struct {
	Fields bson.M
	Text   string
}

// TextEntry returns an entry holding a bare string
func TextEntry(s string) Entry {
	return Entry{Text: s}
}

// DocumentEntry returns an entry holding a structured document
func DocumentEntry(fields bson.M) Entry {
	return Entry{Fields: fields}
}

// IsDocument reports whether the entry holds a structured document
func (e Entry) IsDocument() bool {
	return e.Fields != nil
}

// MarshalBSONValue writes the entry back in the shape it was read in
func (e Entry) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if e.Fields != nil {
		return bson.MarshalValue(e.Fields)
	}
	return bson.MarshalValue(e.Text)
}

// UnmarshalBSONValue accepts embedded documents and strings. Any other scalar
// is kept as its extended JSON text so nothing stored is silently dropped.
func (e *Entry) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.EmbeddedDocument:
		fields := bson.M{}
		if err := raw.Unmarshal(&fields); err != nil {
			return fmt.Errorf("failed to decode record entry: %w", err)
		}
		e.Fields = fields
	case bsontype.String:
		e.Text = raw.StringValue()
	case bsontype.Null, bsontype.Undefined:
	default:
		e.Text = raw.String()
	}
	return nil
}

// MarshalJSON renders documents as objects and bare strings as strings
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Fields != nil {
		return json.Marshal(map[string]interface{}(e.Fields))
	}
	return json.Marshal(e.Text)
}

// UnmarshalJSON mirrors MarshalJSON
func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		fields := map[string]interface{}{}
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return err
		}
		e.Fields = bson.M(fields)
		return nil
	}
	if trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &e.Text)
	}
	e.Text = string(trimmed)
	return nil
}
