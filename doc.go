// Package recdec implements schema-directed binary decoding for two wire
// formats: a row-oriented container format with an embedded JSON schema and
// compressed, sync-marked blocks of records, and a tag-oriented message
// format driven by a separately loaded descriptor registry.
//
// Both decoders produce the same generic value tree (see Value) and share
// wire primitives (varint, zigzag, fixed-width floats), a pull-based visitor
// protocol, and an immutable, by-name registry of named schema/descriptor
// entries that supports self-reference for recursive types.
//
// Encoders, schema evolution between writer and reader schemas, and a
// command-line front end are out of scope for this package.
package recdec
