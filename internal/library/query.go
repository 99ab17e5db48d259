package library

import (
	"net/url"
	"strings"
)

// EntityKind is the kind of entity a [Query] asks for.
type EntityKind string

const (
	EntitySong    EntityKind = "song"
	EntityAlbum   EntityKind = "album"
	EntityArtist  EntityKind = "artist"
	EntityCatalog EntityKind = "catalog"
)

// Query field names.
const (
	FieldName   = "name"
	FieldArtist = "artist"
	FieldAlbum  = "album"
	FieldID     = "id"
)

// Field is one name/value pair of a [Query].
type Field struct {
	Name  string
	Value string
}

// Query is the typed cache key for a lookup: an entity kind plus ordered, normalized fields.
// Two queries are the same lookup exactly when their [Query.String] forms are equal.
type Query struct {
	Kind   EntityKind
	Fields []Field
}

// NewQuery builds a query from alternating name, value arguments. Blank values are dropped.
func NewQuery(kind EntityKind, pairs ...string) Query {
	q := Query{Kind: kind}
	for i := 0; i+1 < len(pairs); i += 2 {
		q = q.With(pairs[i], pairs[i+1])
	}
	return q
}

// Get returns the value of the named field, or "".
func (q Query) Get(name string) string {
	for _, f := range q.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// With returns a copy of q with the named field set to value, replacing any existing value in place.
// A blank value removes the field.
func (q Query) With(name, value string) Query {
	value = strings.TrimSpace(value)
	fields := make([]Field, 0, len(q.Fields)+1)
	replaced := false
	for _, f := range q.Fields {
		if f.Name == name {
			replaced = true
			if value != "" {
				fields = append(fields, Field{Name: name, Value: value})
			}
			continue
		}
		fields = append(fields, f)
	}
	if !replaced && value != "" {
		fields = append(fields, Field{Name: name, Value: value})
	}
	return Query{Kind: q.Kind, Fields: fields}
}

// Map applies fn to every field value.
func (q Query) Map(fn func(string) string) Query {
	fields := make([]Field, len(q.Fields))
	for i, f := range q.Fields {
		fields[i] = Field{Name: f.Name, Value: fn(f.Value)}
	}
	return Query{Kind: q.Kind, Fields: fields}
}

// String encodes the query as "kind?name=value&..." with escaped values, preserving field order.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(string(q.Kind))
	for i, f := range q.Fields {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}

// Equal reports whether q and other key the same lookup.
func (q Query) Equal(other Query) bool {
	return q.String() == other.String()
}
