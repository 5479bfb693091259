// Package index implements the segment-based inverted index the search layer
// executes against.
//
// # Segments
//
// A Segment is an immutable slice of an index holding, per document:
//
//   - stored fields, block compressed with LZ4 or Zstandard
//   - numeric and binary doc values (single-valued, column oriented)
//   - exact term postings as roaring bitmaps
//   - point columns: sortable fixed-width encodings with their documents
//   - field-names postings for exists queries on fields without doc values
//
// Segments are produced by a SegmentWriter and persisted with Segment.WriteTo.
// Deletions never touch a segment; they live in a bitmap owned by the
// IndexWriter and are exposed through SegmentReader.
//
// # Readers
//
// A Reader is a point-in-time view over ordered segments. Each segment appears
// as a LeafContext whose DocBase turns segment-local document numbers into
// global ones. Readers of several indexes are combined with NewMultiReader;
// the combined reader remembers which index each leaf came from and resolves
// it through the MetadataResolver interface.
//
// # Commits
//
// IndexWriter.Commit writes new segment files, live-docs files and a JSON
// manifest named segments_N to a directory.Directory, then advances the
// commit pointer (by default the file segments.current).
package index
