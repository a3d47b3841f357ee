package recdec

import (
	"math"
	"strconv"

	"google.golang.org/protobuf/types/descriptorpb"
)

// FieldKind reuses the real protobuf field-type enumeration directly: it
// is the tagged variant covering every tag-format field type (fixed-width
// integers, varint integers, floats, bool, bytes, string, nested message,
// enum, group).
type FieldKind = descriptorpb.FieldDescriptorProto_Type

// FieldLabel reuses the real protobuf cardinality enumeration
// (optional/required/repeated).
type FieldLabel = descriptorpb.FieldDescriptorProto_Label

const (
	LabelOptional = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	LabelRequired = descriptorpb.FieldDescriptorProto_LABEL_REQUIRED
	LabelRepeated = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
)

// FieldKind* aliases give the tag-dispatch decoder (tagdecoder.go) and its
// callers short, local names for the protobuf field-type constants it
// dispatches on.
const (
	FieldKindDouble   = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	FieldKindFloat    = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	FieldKindInt64    = descriptorpb.FieldDescriptorProto_TYPE_INT64
	FieldKindUint64   = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	FieldKindInt32    = descriptorpb.FieldDescriptorProto_TYPE_INT32
	FieldKindFixed64  = descriptorpb.FieldDescriptorProto_TYPE_FIXED64
	FieldKindFixed32  = descriptorpb.FieldDescriptorProto_TYPE_FIXED32
	FieldKindBool     = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	FieldKindString   = descriptorpb.FieldDescriptorProto_TYPE_STRING
	FieldKindGroup    = descriptorpb.FieldDescriptorProto_TYPE_GROUP
	FieldKindMessage  = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	FieldKindBytes    = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	FieldKindUint32   = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	FieldKindEnum     = descriptorpb.FieldDescriptorProto_TYPE_ENUM
	FieldKindSfixed32 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED32
	FieldKindSfixed64 = descriptorpb.FieldDescriptorProto_TYPE_SFIXED64
	FieldKindSint32   = descriptorpb.FieldDescriptorProto_TYPE_SINT32
	FieldKindSint64   = descriptorpb.FieldDescriptorProto_TYPE_SINT64
)

// FieldDescriptor describes one field of a MessageDescriptor.
type FieldDescriptor struct {
	Name   string
	Number int32
	Label  FieldLabel
	Kind   FieldKind

	// MessageRef/EnumRef are valid only once resolved (see
	// DescriptorRegistry.Resolve) and Kind is TYPE_MESSAGE/TYPE_GROUP or
	// TYPE_ENUM respectively. Until then, unresolvedMessage/unresolvedEnum
	// hold the referenced type's name.
	MessageRef        int
	EnumRef           int
	messageResolved   bool
	enumResolved      bool
	unresolvedMessage string
	unresolvedEnum    string

	Default    Value
	HasDefault bool
}

// SetMessageType marks this field as referencing the named message type,
// to be resolved by DescriptorRegistry.Resolve.
func (f *FieldDescriptor) SetMessageType(name string) { f.unresolvedMessage = name }

// SetEnumType marks this field as referencing the named enum type, to be
// resolved by DescriptorRegistry.Resolve.
func (f *FieldDescriptor) SetEnumType(name string) { f.unresolvedEnum = name }

// MessageDescriptor is a named message type: an ordered list of fields,
// indexed both by name and by wire number.
type MessageDescriptor struct {
	FullName      string
	Order         []*FieldDescriptor
	byName        map[string]*FieldDescriptor
	byNumber      map[int32]*FieldDescriptor
}

// AddField appends a new field to m. Field numbers and names must each be
// unique within the message.
func (m *MessageDescriptor) AddField(name string, number int32, label FieldLabel, kind FieldKind) (*FieldDescriptor, error) {
	if _, exists := m.byName[name]; exists {
		return nil, newErr(ErrInvalidSchema, "message %q already has a field named %q", m.FullName, name)
	}
	if _, exists := m.byNumber[number]; exists {
		return nil, newErr(ErrInvalidSchema, "message %q already has a field numbered %d", m.FullName, number)
	}
	f := &FieldDescriptor{Name: name, Number: number, Label: label, Kind: kind, MessageRef: -1, EnumRef: -1}
	m.Order = append(m.Order, f)
	m.byName[name] = f
	m.byNumber[number] = f
	return f, nil
}

// FieldByName looks up a field descriptor by name.
func (m *MessageDescriptor) FieldByName(name string) (*FieldDescriptor, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// FieldByNumber looks up a field descriptor by wire number.
func (m *MessageDescriptor) FieldByNumber(number int32) (*FieldDescriptor, bool) {
	f, ok := m.byNumber[number]
	return f, ok
}

// EnumValue is one (name, number) pair of an EnumDescriptor.
type EnumValue struct {
	Name   string
	Number int32
}

// EnumDescriptor is a named enum type: an ordered list of (name, number)
// pairs, indexed both ways.
type EnumDescriptor struct {
	FullName string
	Order    []EnumValue
	byName   map[string]int32
	byNumber map[int32]string
}

// AddValue appends a new (name, number) pair. Both must be unique within
// the enum.
func (e *EnumDescriptor) AddValue(name string, number int32) error {
	if _, exists := e.byName[name]; exists {
		return newErr(ErrInvalidSchema, "enum %q already has a value named %q", e.FullName, name)
	}
	if _, exists := e.byNumber[number]; exists {
		return newErr(ErrInvalidSchema, "enum %q already has a value numbered %d", e.FullName, number)
	}
	e.Order = append(e.Order, EnumValue{Name: name, Number: number})
	e.byName[name] = number
	e.byNumber[number] = name
	return nil
}

// NameOf returns the symbol name for number.
func (e *EnumDescriptor) NameOf(number int32) (string, bool) {
	n, ok := e.byNumber[number]
	return n, ok
}

// DescriptorRegistry interns message and enum descriptors by fully
// qualified name, supporting both direct API construction and ingestion of
// a FileDescriptorSet-shaped structure.
type DescriptorRegistry struct {
	messagesByName map[string]int
	Messages       []*MessageDescriptor
	enumsByName    map[string]int
	Enums          []*EnumDescriptor
	resolved       bool
}

// NewDescriptorRegistry constructs an empty registry.
func NewDescriptorRegistry() *DescriptorRegistry {
	return &DescriptorRegistry{
		messagesByName: make(map[string]int),
		enumsByName:    make(map[string]int),
	}
}

// AddMessage interns a new, empty message descriptor under fullName.
func (r *DescriptorRegistry) AddMessage(fullName string) (*MessageDescriptor, error) {
	if _, exists := r.messagesByName[fullName]; exists {
		return nil, newErr(ErrDuplicateSchema, "duplicate message name %q", fullName)
	}
	m := &MessageDescriptor{FullName: fullName, byName: make(map[string]*FieldDescriptor), byNumber: make(map[int32]*FieldDescriptor)}
	r.messagesByName[fullName] = len(r.Messages)
	r.Messages = append(r.Messages, m)
	return m, nil
}

// AddEnum interns a new, empty enum descriptor under fullName.
func (r *DescriptorRegistry) AddEnum(fullName string) (*EnumDescriptor, error) {
	if _, exists := r.enumsByName[fullName]; exists {
		return nil, newErr(ErrDuplicateSchema, "duplicate enum name %q", fullName)
	}
	e := &EnumDescriptor{FullName: fullName, byName: make(map[string]int32), byNumber: make(map[int32]string)}
	r.enumsByName[fullName] = len(r.Enums)
	r.Enums = append(r.Enums, e)
	return e, nil
}

// MessageByName looks up an interned message descriptor by name.
func (r *DescriptorRegistry) MessageByName(name string) (*MessageDescriptor, bool) {
	id, ok := r.messagesByName[name]
	if !ok {
		return nil, false
	}
	return r.Messages[id], true
}

// RootMessage looks up the message descriptor a caller designates as the
// decode entry point by name, failing with ErrNoRootType if absent — the
// tag format has no single designated root the way a row container's
// header names one, so the caller supplies it.
func (r *DescriptorRegistry) RootMessage(name string) (*MessageDescriptor, error) {
	m, ok := r.MessageByName(name)
	if !ok {
		return nil, newErr(ErrNoRootType, "no root message named %q", name)
	}
	return m, nil
}

// EnumByName looks up an interned enum descriptor by name.
func (r *DescriptorRegistry) EnumByName(name string) (*EnumDescriptor, bool) {
	id, ok := r.enumsByName[name]
	if !ok {
		return nil, false
	}
	return r.Enums[id], true
}

// Resolve performs a one-shot reference-resolution pass: every field whose
// type is an unresolved message or enum name is looked up in the
// corresponding index and, on a hit, replaced with a direct identity
// handle. Names that remain unresolved afterward are tolerated here;
// decoding such a field fails at use time with
// ErrUnknownMessage/ErrUnknownEnum.
func (r *DescriptorRegistry) Resolve() {
	for _, m := range r.Messages {
		for _, f := range m.Order {
			switch {
			case f.unresolvedMessage != "" && !f.messageResolved:
				if id, ok := r.messagesByName[f.unresolvedMessage]; ok {
					f.MessageRef = id
					f.messageResolved = true
				}
			case f.unresolvedEnum != "" && !f.enumResolved:
				if id, ok := r.enumsByName[f.unresolvedEnum]; ok {
					f.EnumRef = id
					f.enumResolved = true
				}
			}
		}
	}
	r.resolved = true
}

// ResolvedMessage returns the MessageDescriptor a resolved message-type or
// group-type field refers to.
func (r *DescriptorRegistry) ResolvedMessage(f *FieldDescriptor) (*MessageDescriptor, error) {
	if !f.messageResolved {
		return nil, newErr(ErrUnknownMessage, "field %q references unresolved message %q", f.Name, f.unresolvedMessage)
	}
	return r.Messages[f.MessageRef], nil
}

// ResolvedEnum returns the EnumDescriptor a resolved enum-type field refers
// to.
func (r *DescriptorRegistry) ResolvedEnum(f *FieldDescriptor) (*EnumDescriptor, error) {
	if !f.enumResolved {
		return nil, newErr(ErrUnknownEnum, "field %q references unresolved enum %q", f.Name, f.unresolvedEnum)
	}
	return r.Enums[f.EnumRef], nil
}

// BuildFromFileDescriptorSet ingests a serialized FileDescriptorSet-shaped
// structure — the real, wire-compatible protobuf descriptor meta-schema —
// building message and enum descriptors with names composed the way
// protobuf composes fully qualified names: each file's top-level names are
// prefixed with ".package." when a package is set, else ".", and nested
// types are prefixed with their containing type's qualified name. The
// returned registry has already been through Resolve.
func BuildFromFileDescriptorSet(fds *descriptorpb.FileDescriptorSet) (*DescriptorRegistry, error) {
	r := NewDescriptorRegistry()
	for _, file := range fds.GetFile() {
		prefix := "."
		if pkg := file.GetPackage(); pkg != "" {
			prefix = "." + pkg + "."
		}
		for _, enum := range file.GetEnumType() {
			if err := buildEnum(r, enum, prefix); err != nil {
				return nil, err
			}
		}
		for _, msg := range file.GetMessageType() {
			if err := buildMessage(r, msg, prefix); err != nil {
				return nil, err
			}
		}
	}
	r.Resolve()
	return r, nil
}

func buildEnum(r *DescriptorRegistry, proto *descriptorpb.EnumDescriptorProto, prefix string) error {
	fqn := prefix + proto.GetName()
	e, err := r.AddEnum(fqn)
	if err != nil {
		return err
	}
	for _, v := range proto.GetValue() {
		if err := e.AddValue(v.GetName(), v.GetNumber()); err != nil {
			return err
		}
	}
	return nil
}

func buildMessage(r *DescriptorRegistry, proto *descriptorpb.DescriptorProto, prefix string) error {
	fqn := prefix + proto.GetName()
	m, err := r.AddMessage(fqn)
	if err != nil {
		return err
	}

	nestedPrefix := fqn + "."
	for _, enum := range proto.GetEnumType() {
		if err := buildEnum(r, enum, nestedPrefix); err != nil {
			return err
		}
	}
	for _, nested := range proto.GetNestedType() {
		if err := buildMessage(r, nested, nestedPrefix); err != nil {
			return err
		}
	}

	for _, fp := range proto.GetField() {
		f, err := m.AddField(fp.GetName(), fp.GetNumber(), fp.GetLabel(), fp.GetType())
		if err != nil {
			return err
		}
		switch fp.GetType() {
		case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, descriptorpb.FieldDescriptorProto_TYPE_GROUP:
			f.SetMessageType(fp.GetTypeName())
		case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
			f.SetEnumType(fp.GetTypeName())
		}
		if fp.DefaultValue != nil {
			v, err := ParseDefaultValue(fp.GetType(), fp.GetDefaultValue())
			if err != nil {
				return err
			}
			f.Default = v
			f.HasDefault = true
		}
	}
	return nil
}

// ParseDefaultValue parses a proto text default value for a scalar field
// kind. Message, group and enum fields cannot carry a default at this layer
// and fail with ErrBadDefaultValue.
func ParseDefaultValue(kind FieldKind, text string) (Value, error) {
	switch kind {
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		switch text {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return Value{}, newErr(ErrBadDefaultValue, "invalid bool default %q", text)

	case descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Value{}, newErr(ErrBadDefaultValue, "invalid int32 default %q", text)
		}
		return Int32(int32(n)), nil

	case descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, newErr(ErrBadDefaultValue, "invalid int64 default %q", text)
		}
		return Int64(n), nil

	case descriptorpb.FieldDescriptorProto_TYPE_UINT32, descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		n, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return Value{}, newErr(ErrBadDefaultValue, "invalid uint32 default %q", text)
		}
		return Uint32(uint32(n)), nil

	case descriptorpb.FieldDescriptorProto_TYPE_UINT64, descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		n, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return Value{}, newErr(ErrBadDefaultValue, "invalid uint64 default %q", text)
		}
		return Uint64(n), nil

	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		f, err := parseFloatDefault(text, 32)
		if err != nil {
			return Value{}, err
		}
		return Float32Value(float32(f)), nil

	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		f, err := parseFloatDefault(text, 64)
		if err != nil {
			return Value{}, err
		}
		return Float64Value(f), nil

	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		return String(text), nil

	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return Bytes(bytesFromDefaultText(text)), nil

	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE,
		descriptorpb.FieldDescriptorProto_TYPE_GROUP,
		descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		return Value{}, newErr(ErrBadDefaultValue, "type %v cannot carry a scalar default", kind)
	}
	return Value{}, newErr(ErrBadDefaultValue, "unrecognized field type %v", kind)
}

func parseFloatDefault(text string, bits int) (float64, error) {
	switch text {
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(text, bits)
	if err != nil {
		return 0, newErr(ErrBadDefaultValue, "invalid float default %q", text)
	}
	return f, nil
}

// bytesFromDefaultText lowers each source character to a single byte (its
// low 8 bits).
func bytesFromDefaultText(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		out = append(out, byte(r))
	}
	return out
}
