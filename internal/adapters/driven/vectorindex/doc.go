// Package vectorindex provides an in-process flat vector index with a
// persisted snapshot file.
//
// # Concurrency
//
// The live index is an immutable snapshot behind an atomic pointer. Searches
// load the pointer once and scan that snapshot, so they never wait on
// writers. Writers serialise on a mutex, build the next snapshot, persist it
// and then publish it. A search therefore sees either the old or the new
// snapshot, never a mix.
//
// # File Format
//
// The snapshot is written to a temporary file, synced and renamed over
// index.snap. All integers are little-endian:
//
//	magic "RTVI" | version u16 | dims u32 | rows u32 | updated_at i64
//	rows x ( meta_len u32 | meta JSON | dims x f32 )
//	crc32 (IEEE) of everything above
//
// A snapshot that fails any check is reported as corrupted. The index then
// refuses searches and writes until it is rebuilt from the registry.
package vectorindex
