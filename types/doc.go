// Package types binds the pieces of a logical field together: its codec, its
// predicate factory, and the projections and aggregations it supports.
//
// An IndexModel is the schema of one index: the field types by absolute path.
package types
