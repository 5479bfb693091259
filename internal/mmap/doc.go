// Package mmap maps segment files read-only into memory.
//
// A Mapping backs the mmap file system access strategy of package directory.
// The slice returned by Bytes is valid until Close; callers that keep decoded
// data beyond that point must copy it.
//
// On platforms without mmap(2) the file is read into the heap and the same API
// is served from that copy.
package mmap
