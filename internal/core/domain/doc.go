// Package domain defines the core business entities for ragstore.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - StoredItem: The unit of storage in a vector backend
//   - GroupedView: A computed aggregate of items sharing a source document
//   - RankedHit: A search result with a normalised score
//   - BackendError: A backend failure with its Transient/Permanent class
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
