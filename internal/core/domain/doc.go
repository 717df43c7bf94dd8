// Package domain defines the core business entities for ragtube.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source: A video whose transcript is ingested
//   - Segment: A timed piece of transcript text
//   - Chunk: A retrievable window of transcript text with its embedding
//   - RegistryEntry: The durable record of an ingestion attempt
//   - SearchHit / Answer / Citation: Query results
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
