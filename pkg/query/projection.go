// Package query builds parameterized Postgres SELECTs from a projection of
// logical field names onto qualified columns.
package query

import "strings"

// ProjectionMap maps logical field names (the Go struct field a column
// scans into) to qualified columns, and records the FROM expression.
type ProjectionMap struct {
	from    strings.Builder
	current string
	columns map[string]string
	raw     map[string]string
	order   []string
}

func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	p := &ProjectionMap{
		current: alias,
		columns: make(map[string]string),
		raw:     make(map[string]string),
	}
	p.from.WriteString(schema + "." + table + " " + alias)
	return p
}

// Project maps column on the most recently joined table (or the base
// table) to field.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.current + "." + column
	p.columns[field] = qualified
	if _, taken := p.raw[column]; !taken {
		p.raw[column] = qualified
	}
	p.order = append(p.order, qualified)
	return p
}

// Join appends "joinType schema.table alias ON on" to the FROM expression.
// Later Project calls qualify columns with alias.
func (p *ProjectionMap) Join(schema, table, alias, joinType, on string) *ProjectionMap {
	p.from.WriteString(" " + joinType + " " + schema + "." + table + " " + alias + " ON " + on)
	p.current = alias
	return p
}

func (p *ProjectionMap) From() string {
	return p.from.String()
}

// Lookup returns the qualified column for field. The bare column name is
// accepted too, so clients may sort by "record_date" or "RecordDate".
func (p *ProjectionMap) Lookup(field string) (string, bool) {
	if col, ok := p.columns[field]; ok {
		return col, true
	}
	col, ok := p.raw[field]
	return col, ok
}

// Column is Lookup that falls back to field itself, for expressions written
// by callers rather than taken from a request.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.Lookup(field); ok {
		return col
	}
	return field
}

func (p *ProjectionMap) Columns() string {
	return strings.Join(p.order, ", ")
}
