// Package numeric provides the numeric domains of the index: ordering,
// sentinels, neighbouring values and the sortable encodings used for doc
// values and points.
//
// There is one stateless domain per primitive type, available through
// Integer, Long, Float and Double. Domains are safe for concurrent use.
package numeric
