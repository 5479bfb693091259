// Package convert turns values supplied by callers into the domain type of a
// field before the field codec encodes them.
//
// Every field has two converters: the DSL converter applied to values passed
// through the query DSL, and a raw converter used when the caller disables
// DSL conversion and passes domain values directly.
package convert
