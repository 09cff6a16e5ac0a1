package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialNames generates predictable identifiers of the form
// "<prefix>0001", "<prefix>0002", ...
//
// It stands in for UUID generation wherever tests need stable audio file
// names or request IDs.
//
// Thread-safety: SequentialNames is safe for concurrent use.
type SequentialNames struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialNames creates a generator. If prefix is empty, "test-" is used.
func NewSequentialNames(prefix string) *SequentialNames {
	if prefix == "" {
		prefix = "test-"
	}
	return &SequentialNames{prefix: prefix}
}

// Next returns the next identifier.
func (g *SequentialNames) Next() string {
	return fmt.Sprintf("%s%04d", g.prefix, g.n.Add(1))
}
