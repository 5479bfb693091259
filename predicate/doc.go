// Package predicate builds backend queries for the predicates of one field.
//
// A Factory is attached to each field of an index. Before a query targets the
// same field path in several indexes, the factories of every index must be
// DSL compatible: same kind, compatible codecs and, when DSL conversion is
// enabled, compatible DSL converters.
package predicate
