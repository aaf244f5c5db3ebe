package pagination

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// String returns the query value for key, or nil when it is absent or empty.
func String(values url.Values, key string) *string {
	if v := values.Get(key); v != "" {
		return &v
	}
	return nil
}

// UUID returns the parsed query value for key. Malformed ids are treated as
// absent so a bad filter widens the listing rather than failing it.
func UUID(values url.Values, key string) *uuid.UUID {
	if v, err := uuid.Parse(values.Get(key)); err == nil {
		return &v
	}
	return nil
}

// Bool returns the parsed query value for key, or nil when absent or
// unparseable.
func Bool(values url.Values, key string) *bool {
	if v, err := strconv.ParseBool(values.Get(key)); err == nil {
		return &v
	}
	return nil
}
