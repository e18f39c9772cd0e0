// Package core defines the graph every other mydat package talks about: nodes, the
// edges between them and the snapshot that carries both over the wire and into storage.
//
// The Golden Rule: pkg/core imports ONLY stdlib and its JSON codec.
// All other packages depend on core, not the reverse.
package core
