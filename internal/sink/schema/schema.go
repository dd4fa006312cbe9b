// Package schema implements the binary schema tree (§6 "Binary rows":
// "Schema is a tree of typed leaves (ints, floats, strings, timestamps,
// MAC, IP, repetition groups)") and the shared output buffer that
// onFlowTerm hooks append to (§4.4 "Output buffer contract").
package schema

// Kind identifies a leaf's wire type.
type Kind uint8

const (
	KindInt64 Kind = iota
	KindUint64
	KindFloat64
	KindString
	KindTimestamp
	KindMAC
	KindIP
	KindGroup
)

// Field declares one column. For KindGroup, Group describes the
// sub-fields repeated in each group instance.
type Field struct {
	Name  string
	Kind  Kind
	Group Fields
}

// Fields is a plugin's declared schema, in emission order (§4.4
// "priHdr (binary schema builder)").
type Fields []Field

// Names returns the flat column-name list used for the text-row header
// row (§6 "Text rows": "concatenation, in registered order, of each
// plugin's binary-schema declared names").
func (f Fields) Names() []string {
	var out []string
	for _, field := range f {
		out = append(out, field.Name)
	}
	return out
}
