package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SortField orders by a logical field of the projection.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields reads "title,-record_date" style input. A leading "-"
// sorts descending. Blank entries are skipped.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		name, desc := strings.CutPrefix(part, "-")
		if name == "" {
			continue
		}
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// predicate is one AND-ed WHERE term. Each "?" in sql takes the next arg.
type predicate struct {
	sql  string
	args []any
}

// Builder assembles SELECT, COUNT and page queries over a projection.
// Placeholders are numbered when the query is rendered, so predicates can
// be added in any order.
type Builder struct {
	projection *ProjectionMap
	where      []predicate
	sort       []SortField
	fallback   []SortField
}

func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, fallback: defaultSort}
}

// OrderByFields replaces the default ordering. Fields the projection does
// not map are dropped, so request input never reaches the SQL text.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = b.sort[:0]
	for _, f := range fields {
		if _, ok := b.projection.Lookup(f.Field); ok {
			b.sort = append(b.sort, f)
		}
	}
	return b
}

// WhereEquals adds field = value unless value is nil or a nil pointer.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	return b.WhereCompare(field, "=", value)
}

// WhereCompare adds field op value unless value is nil. op must be a
// comparison operator; anything else panics.
func (b *Builder) WhereCompare(field, op string, value any) *Builder {
	switch op {
	case "=", "<>", "<", "<=", ">", ">=":
	default:
		panic(fmt.Sprintf("query: unsupported operator %q", op))
	}
	if isNil(value) {
		return b
	}
	return b.add(b.projection.Column(field)+" "+op+" ?", value)
}

// WhereRange bounds field inclusively. Either end may be nil.
func (b *Builder) WhereRange(field string, from, to any) *Builder {
	return b.WhereCompare(field, ">=", from).WhereCompare(field, "<=", to)
}

// WhereContains adds a case-insensitive substring match on field.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.add(b.projection.Column(field)+" ILIKE ?", likePattern(*value))
}

// WhereSearch matches search as a substring of any of fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := likePattern(*search)
	terms := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		terms[i] = b.projection.Column(f) + " ILIKE ?"
		args[i] = pattern
	}
	return b.add("("+strings.Join(terms, " OR ")+")", args...)
}

func (b *Builder) Build() (string, []any) {
	var sb strings.Builder
	args := b.selectFrom(&sb)
	b.orderBy(&sb)
	return sb.String(), args
}

func (b *Builder) BuildCount() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM " + b.projection.From())
	return sb.String(), b.whereClause(&sb)
}

// BuildPage selects one page; page is one-based.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	var sb strings.Builder
	args := b.selectFrom(&sb)
	b.orderBy(&sb)
	sb.WriteString(" LIMIT " + strconv.Itoa(pageSize) + " OFFSET " + strconv.Itoa((page-1)*pageSize))
	return sb.String(), args
}

// BuildSingle selects the row whose idField equals id, ignoring any
// predicates already added.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	q := "SELECT " + b.projection.Columns() + " FROM " + b.projection.From() +
		" WHERE " + b.projection.Column(idField) + " = $1"
	return q, []any{id}
}

// BuildSingleOrNull selects at most one row matching the predicates.
func (b *Builder) BuildSingleOrNull() (string, []any) {
	var sb strings.Builder
	args := b.selectFrom(&sb)
	sb.WriteString(" LIMIT 1")
	return sb.String(), args
}

func (b *Builder) add(sql string, args ...any) *Builder {
	b.where = append(b.where, predicate{sql: sql, args: args})
	return b
}

func (b *Builder) selectFrom(sb *strings.Builder) []any {
	sb.WriteString("SELECT " + b.projection.Columns() + " FROM " + b.projection.From())
	return b.whereClause(sb)
}

func (b *Builder) whereClause(sb *strings.Builder) []any {
	if len(b.where) == 0 {
		return nil
	}

	var args []any
	for i, p := range b.where {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		next := 0
		for _, chunk := range strings.SplitAfter(p.sql, "?") {
			before, ok := strings.CutSuffix(chunk, "?")
			sb.WriteString(before)
			if ok {
				args = append(args, p.args[next])
				next++
				sb.WriteString("$" + strconv.Itoa(len(args)))
			}
		}
	}
	return args
}

func (b *Builder) orderBy(sb *strings.Builder) {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.fallback
	}
	for i, f := range fields {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(b.projection.Column(f.Field))
		if f.Descending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}
}

// likePattern wraps s in % after escaping the LIKE metacharacters it
// contains, so a search for "50%" matches the literal text.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
