// Package endpoint resolves a base URL plus per-operation overrides into the fixed
// set of absolute URLs a client uses for its whole lifetime.
package endpoint

import (
	"sort"
	"strings"
)

// Operation is a logical provider operation. Its value is the path appended to
// the base URL when no override is given.
type Operation string

const (
	Embed      Operation = "embed"
	Rerank     Operation = "rerank"
	Predict    Operation = "predict"
	Chat       Operation = "chat/completions"
	Embeddings Operation = "embeddings"
	Models     Operation = "models"
)

// Set is an immutable operation to URL mapping.
type Set struct {
	urls map[Operation]string
}

// Resolve builds a Set for ops. Trailing slashes on base are trimmed before
// joining; overrides are used verbatim. Overrides for operations not listed in
// ops are added as well. No validation is performed; malformed URLs surface at
// the transport.
func Resolve(base string, overrides map[Operation]string, ops ...Operation) Set {
	base = strings.TrimRight(base, "/")

	urls := make(map[Operation]string, len(ops)+len(overrides))
	for _, op := range ops {
		urls[op] = base + "/" + string(op)
	}
	for op, url := range overrides {
		if url == "" {
			continue
		}
		urls[op] = url
	}
	return Set{urls: urls}
}

// URL returns the URL for op and whether it is known.
func (s Set) URL(op Operation) (string, bool) {
	url, ok := s.urls[op]
	return url, ok
}

// MustURL returns the URL for op or panics. Use only for operations the owning
// client resolved at construction.
func (s Set) MustURL(op Operation) string {
	url, ok := s.urls[op]
	if !ok {
		panic("endpoint: operation " + string(op) + " was not resolved")
	}
	return url
}

// Operations returns the resolved operations in sorted order.
func (s Set) Operations() []Operation {
	ops := make([]Operation, 0, len(s.urls))
	for op := range s.urls {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Equal reports whether two sets map the same operations to the same URLs.
func (s Set) Equal(other Set) bool {
	if len(s.urls) != len(other.urls) {
		return false
	}
	for op, url := range s.urls {
		if other.urls[op] != url {
			return false
		}
	}
	return true
}
