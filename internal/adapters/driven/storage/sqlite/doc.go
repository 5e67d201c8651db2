// Package sqlite provides the default persistent vector store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Chunks live in a single table with
// the meeting id as an indexed column; embeddings are little-endian float32 BLOBs.
//
// SQLite has no vector index, so Query loads the meeting's chunks and ranks
// them by cosine distance in Go. Meetings are small enough for this to be cheap.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. The embedding dimensionality is recorded in the
// store_meta table on first write and enforced afterwards.
//
// # Data Location
//
// By default, the database is stored at ~/.meetsight/data/meetings.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
