// Package search executes backend-native queries over an index.Reader and
// feeds the matches to leaf-aware collectors.
//
// A pass visits leaves in order and, within a leaf, live matching documents
// in increasing order:
//
//	c.SetNextReader(leaf)   // once per leaf, resolves per-segment state
//	c.Collect(doc)          // per match, doc is segment-local
//	c.Finish()              // once, after the last leaf
//
// Global document numbers are leaf.DocBase + doc, so they never decrease
// during a pass. DocumentReferenceCollector turns them into (index, id)
// pairs for the entity loader; the other collectors count hits, keep the top
// scoring documents, project stored fields or aggregate doc values.
//
// Searcher runs one pass on the calling goroutine. ParallelSearcher runs one
// collector per leaf on a worker pool and reduces the results in leaf order.
package search
