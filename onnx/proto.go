// Package onnx converts fitted lightgbm models into the ONNX interchange
// format. The exported bytes form a ModelProto whose graph holds a single
// ai.onnx.ml TreeEnsembleClassifier node, loadable by any compliant
// inference runtime.
//
// Only the subset of the ONNX schema needed for tree-ensemble export is
// modeled here. Messages are serialized directly with
// google.golang.org/protobuf/encoding/protowire instead of carrying
// generated bindings for the full schema.
package onnx

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// TensorElemType is the ONNX tensor element type enum.
type TensorElemType int32

// Element types used by the exported graph.
const (
	TensorFloat TensorElemType = 1
	TensorInt64 TensorElemType = 7
)

// AttributeType is the ONNX AttributeProto.AttributeType enum.
type AttributeType int32

// Attribute types used by the exported graph.
const (
	AttrFloat   AttributeType = 1
	AttrInt     AttributeType = 2
	AttrString  AttributeType = 3
	AttrFloats  AttributeType = 6
	AttrInts    AttributeType = 7
	AttrStrings AttributeType = 8
)

// Dimension is one entry of a TensorShapeProto. Exactly one of Value and
// Param is serialized; a non-empty Param denotes a symbolic dimension.
type Dimension struct {
	Value int64
	Param string
}

// TensorShape is the ONNX TensorShapeProto message.
type TensorShape struct {
	Dims []Dimension
}

// TensorType is the ONNX TypeProto.Tensor message.
type TensorType struct {
	ElemType TensorElemType
	Shape    *TensorShape
}

// ValueInfo declares the name and tensor type of a graph input or output.
type ValueInfo struct {
	Name      string
	Type      TensorType
	DocString string
}

// Attribute is the ONNX AttributeProto message, restricted to the value
// kinds a tree ensemble uses.
type Attribute struct {
	Name    string
	Type    AttributeType
	F       float32
	I       int64
	S       []byte
	Floats  []float32
	Ints    []int64
	Strings [][]byte
}

// Node is the ONNX NodeProto message.
type Node struct {
	Inputs     []string
	Outputs    []string
	Name       string
	OpType     string
	Domain     string
	Attributes []Attribute
	DocString  string
}

// Graph is the ONNX GraphProto message.
type Graph struct {
	Nodes     []Node
	Name      string
	DocString string
	Inputs    []ValueInfo
	Outputs   []ValueInfo
}

// OperatorSetID pins the version of an operator domain.
type OperatorSetID struct {
	Domain  string
	Version int64
}

// ModelProto is the top-level ONNX message.
type ModelProto struct {
	IRVersion       int64
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Graph           Graph
	OpsetImports    []OperatorSetID
}

// Marshal serializes the model in protobuf wire format.
func (m *ModelProto) Marshal() []byte {
	var b []byte
	if m.IRVersion != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.IRVersion))
	}
	b = appendStringField(b, 2, m.ProducerName)
	b = appendStringField(b, 3, m.ProducerVersion)
	b = appendStringField(b, 4, m.Domain)
	if m.ModelVersion != 0 {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.ModelVersion))
	}
	b = appendStringField(b, 6, m.DocString)
	b = appendMessage(b, 7, m.Graph.marshal())
	for _, opset := range m.OpsetImports {
		b = appendMessage(b, 8, opset.marshal())
	}
	return b
}

func (g *Graph) marshal() []byte {
	var b []byte
	for _, node := range g.Nodes {
		b = appendMessage(b, 1, node.marshal())
	}
	b = appendStringField(b, 2, g.Name)
	b = appendStringField(b, 10, g.DocString)
	for _, input := range g.Inputs {
		b = appendMessage(b, 11, input.marshal())
	}
	for _, output := range g.Outputs {
		b = appendMessage(b, 12, output.marshal())
	}
	return b
}

func (n *Node) marshal() []byte {
	var b []byte
	for _, input := range n.Inputs {
		b = appendStringField(b, 1, input)
	}
	for _, output := range n.Outputs {
		b = appendStringField(b, 2, output)
	}
	b = appendStringField(b, 3, n.Name)
	b = appendStringField(b, 4, n.OpType)
	for _, attr := range n.Attributes {
		b = appendMessage(b, 5, attr.marshal())
	}
	b = appendStringField(b, 6, n.DocString)
	b = appendStringField(b, 7, n.Domain)
	return b
}

func (a *Attribute) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, a.Name)
	switch a.Type {
	case AttrFloat:
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.F))
	case AttrInt:
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.I))
	case AttrString:
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, a.S)
	case AttrFloats:
		b = appendPackedFloats(b, 7, a.Floats)
	case AttrInts:
		b = appendPackedInts(b, 8, a.Ints)
	case AttrStrings:
		for _, s := range a.Strings {
			b = protowire.AppendTag(b, 9, protowire.BytesType)
			b = protowire.AppendBytes(b, s)
		}
	}
	b = protowire.AppendTag(b, 20, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.Type))
	return b
}

func (v *ValueInfo) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, v.Name)
	b = appendMessage(b, 2, v.Type.marshalTypeProto())
	b = appendStringField(b, 3, v.DocString)
	return b
}

// marshalTypeProto wraps the tensor type in the TypeProto oneof.
func (t *TensorType) marshalTypeProto() []byte {
	var inner []byte
	if t.ElemType != 0 {
		inner = protowire.AppendTag(inner, 1, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(t.ElemType))
	}
	if t.Shape != nil {
		inner = appendMessage(inner, 2, t.Shape.marshal())
	}

	var b []byte
	b = appendMessage(b, 1, inner)
	return b
}

func (s *TensorShape) marshal() []byte {
	var b []byte
	for _, dim := range s.Dims {
		b = appendMessage(b, 1, dim.marshal())
	}
	return b
}

func (d *Dimension) marshal() []byte {
	var b []byte
	if d.Param != "" {
		b = appendStringField(b, 2, d.Param)
		return b
	}
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.Value))
	return b
}

func (o *OperatorSetID) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, o.Domain)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.Version))
	return b
}

// Low-level append helpers. Zero-valued strings are omitted, matching
// proto3 serialization of absent fields.

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendPackedFloats(b []byte, num protowire.Number, vals []float32) []byte {
	if len(vals) == 0 {
		return b
	}
	packed := make([]byte, 0, 4*len(vals))
	for _, v := range vals {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendPackedInts(b []byte, num protowire.Number, vals []int64) []byte {
	if len(vals) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vals {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}
