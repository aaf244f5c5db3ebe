package workflow

import "errors"

// ErrNotExtracted marks a document stage submitted before extraction.
var ErrNotExtracted = errors.New("document text not extracted")
