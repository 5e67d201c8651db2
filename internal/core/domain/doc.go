// Package domain defines the core business entities for meetsight.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - MeetingID: The partition key for one meeting's transcript corpus
//   - Chunk: A unit of indexed transcript text with its embedding
//   - Query: A transient retrieval request scoped to one meeting
//   - Insight: Structured output parsed from the generative model
//   - Extraction: The tagged result of an insight extraction
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
