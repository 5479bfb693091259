// Package codec converts domain values of a field into their indexed, doc
// value and stored representations.
//
// Each logical field has exactly one codec. A codec owns a bijection between
// the domain type F and an encoded type E; numeric codecs delegate ordering and
// the sortable encodings of E to a numeric.Domain.
//
// Codecs are immutable after construction and safe for concurrent use.
//
// # Null replacement
//
// A codec built with WithIndexNullAs indexes nil values as a reserved
// sentinel encoding that no legitimate value can produce. Decode reports the
// sentinel with ok == false and returns the configured replacement.
package codec
