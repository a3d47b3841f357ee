package recdec

import (
	"fmt"
	"strconv"
	"strings"
)

// The code in this file is not written with the same strict performance
// concerns as the rest of the package. It exists to give tooling (tests,
// debug logging, a future CLI front-end) an easy, human-readable rendering
// of a decoded Value tree, a row Schema, or a tag Descriptor.

// SprintValue renders v as an indented tree, two spaces per nesting level,
// the way a human inspecting a decoded record would want to read it.
func SprintValue(v Value) string {
	var buf strings.Builder
	writeValue(&buf, v, 0, "")
	return buf.String()
}

// PrintValue writes SprintValue(v) to stdout followed by a newline.
func PrintValue(v Value) {
	fmt.Println(SprintValue(v))
}

func writeValue(buf *strings.Builder, v Value, nestLevel int, label string) {
	indent := strings.Repeat("  ", nestLevel)

	switch v.Kind() {
	case KindSequence:
		seq := v.AsSequence()
		fmt.Fprintf(buf, "%s%s[]\n", indent, label)
		for i, elem := range seq {
			writeValue(buf, elem, nestLevel+1, "["+strconv.Itoa(i)+"] ")
		}

	case KindMap:
		entries := v.AsMap()
		fmt.Fprintf(buf, "%s%s{}\n", indent, label)
		for _, e := range entries {
			writeValue(buf, e.Value, nestLevel+1, e.Key.AsString()+": ")
		}

	default:
		fmt.Fprintf(buf, "%s%s%s\n", indent, label, scalarString(v))
	}
}

func scalarString(v Value) string {
	switch v.Kind() {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return strconv.FormatInt(v.AsInt64(), 10)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return strconv.FormatUint(v.AsUint64(), 10)
	case KindFloat32, KindFloat64:
		return v.AsFloat().String()
	case KindChar:
		return strconv.QuoteRune(v.AsChar())
	case KindString:
		return strconv.Quote(v.AsString())
	case KindBytes:
		return fmt.Sprintf("% x", v.AsBytes())
	}
	return v.Kind().String()
}

// SprintSchema renders a row Schema tree, resolving named references
// through reg, in the same indented style as SprintValue.
func SprintSchema(reg *SchemaRegistry, ref SchemaRef) string {
	var buf strings.Builder
	writeSchema(&buf, reg, ref, 0, "", map[int]bool{})
	return buf.String()
}

func writeSchema(buf *strings.Builder, reg *SchemaRegistry, ref SchemaRef, nestLevel int, label string, seen map[int]bool) {
	indent := strings.Repeat("  ", nestLevel)
	schema := reg.Resolve(ref)

	switch schema.Kind {
	case SchemaRecord:
		fmt.Fprintf(buf, "%s%srecord %s\n", indent, label, schema.FullName)
		if ref.Inline == nil {
			if seen[ref.ID] {
				fmt.Fprintf(buf, "%s  ...\n", indent)
				return
			}
			seen[ref.ID] = true
		}
		for _, f := range schema.Fields {
			writeSchema(buf, reg, f.Type, nestLevel+1, f.Name+": ", seen)
		}

	case SchemaEnum:
		fmt.Fprintf(buf, "%s%senum %s %v\n", indent, label, schema.FullName, schema.Symbols)

	case SchemaFixed:
		fmt.Fprintf(buf, "%s%sfixed %s(%d)\n", indent, label, schema.FullName, schema.Size)

	case SchemaArray:
		fmt.Fprintf(buf, "%s%sarray\n", indent, label)
		writeSchema(buf, reg, *schema.Element, nestLevel+1, "", seen)

	case SchemaMap:
		fmt.Fprintf(buf, "%s%smap\n", indent, label)
		writeSchema(buf, reg, *schema.Element, nestLevel+1, "", seen)

	case SchemaUnion:
		fmt.Fprintf(buf, "%s%sunion\n", indent, label)
		for i, branch := range schema.Branches {
			writeSchema(buf, reg, branch, nestLevel+1, "["+strconv.Itoa(i)+"] ", seen)
		}

	default:
		fmt.Fprintf(buf, "%s%s%s\n", indent, label, schema.Kind)
	}
}

// SprintDescriptor renders a tag-format MessageDescriptor tree.
func SprintDescriptor(reg *DescriptorRegistry, md *MessageDescriptor) string {
	var buf strings.Builder
	writeDescriptor(&buf, reg, md, 0, map[string]bool{})
	return buf.String()
}

func writeDescriptor(buf *strings.Builder, reg *DescriptorRegistry, md *MessageDescriptor, nestLevel int, seen map[string]bool) {
	indent := strings.Repeat("  ", nestLevel)
	fmt.Fprintf(buf, "%smessage %s\n", indent, md.FullName)

	if seen[md.FullName] {
		fmt.Fprintf(buf, "%s  ...\n", indent)
		return
	}
	seen[md.FullName] = true

	for _, f := range md.Order {
		label := fmt.Sprintf("%s  %s %d: %s", indent, fieldLabelString(f.Label), f.Number, f.Name)
		switch {
		case f.Kind == FieldKindMessage || f.Kind == FieldKindGroup:
			fmt.Fprintln(buf, label)
			if nested, err := reg.ResolvedMessage(f); err == nil {
				writeDescriptor(buf, reg, nested, nestLevel+1, seen)
			}
		case f.Kind == FieldKindEnum:
			if en, err := reg.ResolvedEnum(f); err == nil {
				fmt.Fprintf(buf, "%s (enum %s)\n", label, en.FullName)
			} else {
				fmt.Fprintln(buf, label)
			}
		default:
			fmt.Fprintln(buf, label)
		}
	}
}

func fieldLabelString(l FieldLabel) string {
	switch l {
	case LabelRequired:
		return "required"
	case LabelRepeated:
		return "repeated"
	default:
		return "optional"
	}
}

// Document wraps a decoded Value to give it fmt.Stringer/fmt.Formatter
// implementations, so a Value can be dropped straight into a Printf call
// during debugging.
type Document struct{ Value Value }

// String implements fmt.Stringer.
func (d Document) String() string { return SprintValue(d.Value) }

// Format implements fmt.Formatter: %s/%v print the tree, %+v additionally
// reports the root Kind.
func (d Document) Format(f fmt.State, verb rune) {
	switch verb {
	case 's', 'v':
		if verb == 'v' && f.Flag('+') {
			fmt.Fprintf(f, "kind=%s\n%s", d.Value.Kind(), d.String())
			return
		}
		f.Write([]byte(d.String()))
	default:
		fmt.Fprintf(f, "%%!%c(recdec.Document)", verb)
	}
}
