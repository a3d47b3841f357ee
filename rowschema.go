package recdec

import (
	"encoding/json"
	"strings"
)

// SchemaKind discriminates the case of a row-format Schema.
type SchemaKind uint8

const (
	SchemaNull SchemaKind = iota
	SchemaBoolean
	SchemaInt32
	SchemaInt64
	SchemaFloat32
	SchemaFloat64
	SchemaBytes
	SchemaString
	SchemaRecord
	SchemaEnum
	SchemaArray
	SchemaMap
	SchemaUnion
	SchemaFixed
)

func (k SchemaKind) String() string {
	switch k {
	case SchemaNull:
		return "null"
	case SchemaBoolean:
		return "boolean"
	case SchemaInt32:
		return "int"
	case SchemaInt64:
		return "long"
	case SchemaFloat32:
		return "float"
	case SchemaFloat64:
		return "double"
	case SchemaBytes:
		return "bytes"
	case SchemaString:
		return "string"
	case SchemaRecord:
		return "record"
	case SchemaEnum:
		return "enum"
	case SchemaArray:
		return "array"
	case SchemaMap:
		return "map"
	case SchemaUnion:
		return "union"
	case SchemaFixed:
		return "fixed"
	}
	return "invalid"
}

// SchemaRef is a type reference: either an inline Schema value or an
// interned handle (ID) into a SchemaRegistry.
type SchemaRef struct {
	Inline *Schema
	ID     int // valid index into the owning registry's Types when Inline == nil
}

// Field describes one record field: name, optional documentation, a type
// reference, and an optional, uninterpreted default value.
type Field struct {
	Name       string
	Doc        string
	Type       SchemaRef
	Default    any
	HasDefault bool
}

// Schema is the row-format type description: primitive, composite, or named
// reference.
type Schema struct {
	Kind SchemaKind

	// FullName is set for record, enum, and fixed (the three named
	// cases); it is the namespace-qualified "namespace.local" name.
	FullName string

	Fields  []Field  // record
	Symbols []string // enum
	Element *SchemaRef
	Branches []SchemaRef // union; len >= 2
	Size    int         // fixed; byte size, >= 0
}

// SchemaRegistry interns named row-format schema definitions (record, enum,
// fixed) by fully qualified name, in insertion order, each with a stable
// integer identity — the mechanism that lets a record field reference its
// own enclosing record (or any other named type defined earlier or whose
// placeholder has already been reserved).
type SchemaRegistry struct {
	byName map[string]int
	Types  []*Schema
}

// NewSchemaRegistry constructs an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{byName: make(map[string]int)}
}

// Resolve returns the Schema a reference points to, following the interned
// handle when present.
func (reg *SchemaRegistry) Resolve(ref SchemaRef) *Schema {
	if ref.Inline != nil {
		return ref.Inline
	}
	return reg.Types[ref.ID]
}

// Lookup finds an interned type by its fully qualified name.
func (reg *SchemaRegistry) Lookup(fqn string) (int, bool) {
	id, ok := reg.byName[fqn]
	return id, ok
}

// reserveName interns fqn, returning its stable identity. Duplicate names
// fail with ErrDuplicateSchema.
func (reg *SchemaRegistry) reserveName(fqn string) (int, error) {
	if _, exists := reg.byName[fqn]; exists {
		return 0, newErr(ErrDuplicateSchema, "duplicate schema name %q", fqn)
	}
	id := len(reg.Types)
	reg.Types = append(reg.Types, nil)
	reg.byName[fqn] = id
	return id, nil
}

var primitiveKinds = map[string]SchemaKind{
	"null":    SchemaNull,
	"boolean": SchemaBoolean,
	"int":     SchemaInt32,
	"long":    SchemaInt64,
	"float":   SchemaFloat32,
	"double":  SchemaFloat64,
	"bytes":   SchemaBytes,
	"string":  SchemaString,
}

// ParseSchema parses JSON schema text into a new registry, returning the
// registry and a reference to the root type.
func ParseSchema(jsonText []byte) (*SchemaRegistry, SchemaRef, error) {
	var tree any
	if err := json.Unmarshal(jsonText, &tree); err != nil {
		return nil, SchemaRef{}, wrapErr(ErrJSONParse, err, "parse schema JSON")
	}
	reg := NewSchemaRegistry()
	ref, err := parseSchemaNode(reg, tree, "")
	if err != nil {
		return nil, SchemaRef{}, err
	}
	return reg, ref, nil
}

// parseSchemaNode dispatches on the JSON node shape:
// a string is a primitive name or a named reference, an array is a union of
// its elements, and an object is dispatched by its "type" field.
func parseSchemaNode(reg *SchemaRegistry, node any, enclosingNamespace string) (SchemaRef, error) {
	switch n := node.(type) {
	case string:
		return resolvePrimitiveOrRef(reg, n, enclosingNamespace)
	case []any:
		return parseUnion(reg, n, enclosingNamespace)
	case map[string]any:
		return parseObject(reg, n, enclosingNamespace)
	case nil:
		return SchemaRef{}, newErr(ErrInvalidSchema, "schema node is null")
	default:
		return SchemaRef{}, newErr(ErrInvalidSchema, "unexpected schema node of type %T", node)
	}
}

// resolvePrimitiveOrRef resolves a bare name: a primitive type name, or a
// named-type reference looked up first by its verbatim spelling, then, if
// that misses, qualified by the enclosing namespace. If a name is written
// unqualified but a namespace-qualified entry also exists, this order
// means the qualified form wins only when the verbatim name alone does not
// already match something.
func resolvePrimitiveOrRef(reg *SchemaRegistry, name, enclosingNamespace string) (SchemaRef, error) {
	if kind, ok := primitiveKinds[name]; ok {
		return SchemaRef{Inline: &Schema{Kind: kind}}, nil
	}
	if id, ok := reg.Lookup(name); ok {
		return SchemaRef{ID: id}, nil
	}
	if enclosingNamespace != "" {
		if id, ok := reg.Lookup(enclosingNamespace + "." + name); ok {
			return SchemaRef{ID: id}, nil
		}
	}
	return SchemaRef{}, newErr(ErrNoSuchType, "no such type %q", name)
}

func parseUnion(reg *SchemaRegistry, elems []any, enclosingNamespace string) (SchemaRef, error) {
	if len(elems) < 2 {
		return SchemaRef{}, newErr(ErrInvalidSchema, "union must have at least two branches, got %d", len(elems))
	}
	branches := make([]SchemaRef, len(elems))
	for i, e := range elems {
		ref, err := parseSchemaNode(reg, e, enclosingNamespace)
		if err != nil {
			return SchemaRef{}, err
		}
		branches[i] = ref
	}
	return SchemaRef{Inline: &Schema{Kind: SchemaUnion, Branches: branches}}, nil
}

func parseObject(reg *SchemaRegistry, obj map[string]any, enclosingNamespace string) (SchemaRef, error) {
	raw, ok := obj["type"]
	if !ok {
		return SchemaRef{}, newErr(ErrInvalidSchema, "object schema missing \"type\"")
	}
	if name, ok := raw.(string); ok {
		switch name {
		case "record":
			return parseRecord(reg, obj, enclosingNamespace)
		case "enum":
			return parseEnum(reg, obj, enclosingNamespace)
		case "array":
			return parseArray(reg, obj, enclosingNamespace)
		case "map":
			return parseMap(reg, obj, enclosingNamespace)
		case "fixed":
			return parseFixed(reg, obj, enclosingNamespace)
		default:
			return resolvePrimitiveOrRef(reg, name, enclosingNamespace)
		}
	}
	return parseSchemaNode(reg, raw, enclosingNamespace)
}

// namespaceOf reads an explicit "namespace" key, falling back to the
// enclosing namespace when absent.
func namespaceOf(obj map[string]any, enclosingNamespace string) string {
	if v, ok := obj["namespace"].(string); ok {
		return v
	}
	return enclosingNamespace
}

// qualify computes a fully qualified name from a namespace and a local
// name. A local name that already contains a '.' is treated as already
// fully qualified, per standard Avro name resolution.
func qualify(namespace, name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

func requireString(obj map[string]any, key string) (string, error) {
	v, ok := obj[key].(string)
	if !ok {
		return "", newErr(ErrInvalidSchema, "missing or non-string %q", key)
	}
	return v, nil
}

// parseRecord implements the named-type creation protocol for records:
// reserve the name first (so fields can self-reference the record being
// built), then build the field list under the record's own namespace,
// then store the completed body at the reserved identity.
func parseRecord(reg *SchemaRegistry, obj map[string]any, enclosingNamespace string) (SchemaRef, error) {
	ns := namespaceOf(obj, enclosingNamespace)
	local, err := requireString(obj, "name")
	if err != nil {
		return SchemaRef{}, err
	}
	fqn := qualify(ns, local)

	id, err := reg.reserveName(fqn)
	if err != nil {
		return SchemaRef{}, err
	}
	reg.Types[id] = &Schema{Kind: SchemaRecord, FullName: fqn}

	rawFields, ok := obj["fields"].([]any)
	if !ok {
		return SchemaRef{}, newErr(ErrInvalidSchema, "record %q missing \"fields\"", fqn)
	}

	fields := make([]Field, 0, len(rawFields))
	for _, rf := range rawFields {
		fo, ok := rf.(map[string]any)
		if !ok {
			return SchemaRef{}, newErr(ErrInvalidSchema, "record %q has a non-object field", fqn)
		}
		fname, err := requireString(fo, "name")
		if err != nil {
			return SchemaRef{}, err
		}
		typeRef, err := parseSchemaNode(reg, fo["type"], ns)
		if err != nil {
			return SchemaRef{}, err
		}
		doc, _ := fo["doc"].(string)
		def, hasDef := fo["default"]
		fields = append(fields, Field{Name: fname, Doc: doc, Type: typeRef, Default: def, HasDefault: hasDef})
	}

	reg.Types[id].Fields = fields
	return SchemaRef{ID: id}, nil
}

func parseEnum(reg *SchemaRegistry, obj map[string]any, enclosingNamespace string) (SchemaRef, error) {
	ns := namespaceOf(obj, enclosingNamespace)
	local, err := requireString(obj, "name")
	if err != nil {
		return SchemaRef{}, err
	}
	fqn := qualify(ns, local)

	id, err := reg.reserveName(fqn)
	if err != nil {
		return SchemaRef{}, err
	}

	rawSymbols, ok := obj["symbols"].([]any)
	if !ok {
		return SchemaRef{}, newErr(ErrInvalidSchema, "enum %q missing \"symbols\"", fqn)
	}
	symbols := make([]string, len(rawSymbols))
	for i, s := range rawSymbols {
		str, ok := s.(string)
		if !ok {
			return SchemaRef{}, newErr(ErrInvalidSchema, "enum %q has a non-string symbol", fqn)
		}
		symbols[i] = str
	}

	reg.Types[id] = &Schema{Kind: SchemaEnum, FullName: fqn, Symbols: symbols}
	return SchemaRef{ID: id}, nil
}

func parseFixed(reg *SchemaRegistry, obj map[string]any, enclosingNamespace string) (SchemaRef, error) {
	ns := namespaceOf(obj, enclosingNamespace)
	local, err := requireString(obj, "name")
	if err != nil {
		return SchemaRef{}, err
	}
	fqn := qualify(ns, local)

	id, err := reg.reserveName(fqn)
	if err != nil {
		return SchemaRef{}, err
	}

	sizeF, ok := obj["size"].(float64)
	if !ok || sizeF < 0 {
		return SchemaRef{}, newErr(ErrInvalidSchema, "fixed %q has a missing or negative \"size\"", fqn)
	}

	reg.Types[id] = &Schema{Kind: SchemaFixed, FullName: fqn, Size: int(sizeF)}
	return SchemaRef{ID: id}, nil
}

func parseArray(reg *SchemaRegistry, obj map[string]any, enclosingNamespace string) (SchemaRef, error) {
	elemRef, err := parseSchemaNode(reg, obj["items"], enclosingNamespace)
	if err != nil {
		return SchemaRef{}, err
	}
	return SchemaRef{Inline: &Schema{Kind: SchemaArray, Element: &elemRef}}, nil
}

// parseMap implements map schemas, which have implicit string keys (only
// the value type is declared).
func parseMap(reg *SchemaRegistry, obj map[string]any, enclosingNamespace string) (SchemaRef, error) {
	elemRef, err := parseSchemaNode(reg, obj["values"], enclosingNamespace)
	if err != nil {
		return SchemaRef{}, err
	}
	return SchemaRef{Inline: &Schema{Kind: SchemaMap, Element: &elemRef}}, nil
}
