// Package directory abstracts where index files live.
//
// An index is a set of immutable segment files plus small commit manifests.
// A Directory stores them as named, write-once byte blobs:
//
//	type Directory interface {
//	    Open(ctx, name) (Input, error)       // random-access read
//	    Put(ctx, name, data) error           // atomic whole-file write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	    Close() error
//	}
//
// # Built-in Implementations
//
//   - NewFS: local file system with the simple, nio and mmap access strategies
//   - NewMemory: heap-backed, for tests and ephemeral indexes
//   - NewCaching: block cache in front of a slow (usually remote) directory
//
// Object store and embedded key/value implementations live in the s3, minio
// and badger subpackages.
//
// Implementations must be safe for concurrent use.
package directory
