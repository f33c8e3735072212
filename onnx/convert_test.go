package onnx

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Abdullahalhasan627/ShieldAI/lightgbm"
)

// stumpEnsemble builds a two-tree binary model by hand. Each tree splits
// feature 0 at 0.5 and returns -1 or +1, scaled by a 0.5 shrinkage rate.
func stumpEnsemble() *lightgbm.Model {
	model := lightgbm.NewModel()
	model.Objective = lightgbm.BinaryLogistic
	model.NumClass = 2
	model.NumFeatures = 4
	model.NumIteration = 2
	model.InitScore = 0.25

	for ti := 0; ti < 2; ti++ {
		tree := lightgbm.Tree{
			TreeIndex:     ti,
			NumLeaves:     2,
			ShrinkageRate: 0.5,
			Nodes: []lightgbm.Node{
				{
					NodeID: 0, ParentID: -1,
					LeftChild: 1, RightChild: 2,
					NodeType:     lightgbm.NumericalNode,
					SplitFeature: 0, Threshold: 0.5, DefaultLeft: true,
				},
				{NodeID: 1, ParentID: 0, LeftChild: -1, RightChild: -1, NodeType: lightgbm.LeafNode, LeafValue: -1.0},
				{NodeID: 2, ParentID: 0, LeftChild: -1, RightChild: -1, NodeType: lightgbm.LeafNode, LeafValue: 1.0},
			},
		}
		model.Trees = append(model.Trees, tree)
	}
	return model
}

// decodedAttr is the subset of an AttributeProto a test needs to inspect.
type decodedAttr struct {
	name    string
	attrTyp int64
	s       []byte
	ints    []int64
	floats  []float32
	strings [][]byte
}

// decodeFields splits a protobuf message into its top-level fields, keyed
// by field number. Repeated fields keep their order.
func decodeFields(t *testing.T, data []byte) map[protowire.Number][][]byte {
	t.Helper()
	fields := make(map[protowire.Number][][]byte)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		require.GreaterOrEqual(t, n, 0, "invalid tag")
		data = data[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			require.GreaterOrEqual(t, n, 0)
			fields[num] = append(fields[num], protowire.AppendVarint(nil, v))
			data = data[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(data)
			require.GreaterOrEqual(t, n, 0)
			fields[num] = append(fields[num], protowire.AppendFixed32(nil, v))
			data = data[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			require.GreaterOrEqual(t, n, 0)
			fields[num] = append(fields[num], v)
			data = data[n:]
		default:
			t.Fatalf("unexpected wire type %v for field %d", typ, num)
		}
	}
	return fields
}

func decodeVarint(t *testing.T, raw []byte) int64 {
	t.Helper()
	v, n := protowire.ConsumeVarint(raw)
	require.GreaterOrEqual(t, n, 0)
	return int64(v)
}

func decodeAttr(t *testing.T, raw []byte) decodedAttr {
	t.Helper()
	fields := decodeFields(t, raw)
	attr := decodedAttr{}
	if v, ok := fields[1]; ok {
		attr.name = string(v[0])
	}
	if v, ok := fields[20]; ok {
		attr.attrTyp = decodeVarint(t, v[0])
	}
	if v, ok := fields[4]; ok {
		attr.s = v[0]
	}
	if v, ok := fields[8]; ok {
		packed := v[0]
		for len(packed) > 0 {
			i, n := protowire.ConsumeVarint(packed)
			require.GreaterOrEqual(t, n, 0)
			attr.ints = append(attr.ints, int64(i))
			packed = packed[n:]
		}
	}
	if v, ok := fields[7]; ok {
		packed := v[0]
		for len(packed) > 0 {
			bits, n := protowire.ConsumeFixed32(packed)
			require.GreaterOrEqual(t, n, 0)
			attr.floats = append(attr.floats, math.Float32frombits(bits))
			packed = packed[n:]
		}
	}
	attr.strings = fields[9]
	return attr
}

// decodeEnsembleAttrs extracts the TreeEnsembleClassifier attributes from a
// serialized model, asserting the model/graph/node structure on the way.
func decodeEnsembleAttrs(t *testing.T, data []byte) map[string]decodedAttr {
	t.Helper()

	model := decodeFields(t, data)
	require.Contains(t, model, protowire.Number(1), "ir_version missing")
	assert.Equal(t, int64(irVersion), decodeVarint(t, model[1][0]))
	require.Contains(t, model, protowire.Number(7), "graph missing")

	graph := decodeFields(t, model[7][0])
	require.Len(t, graph[1], 1, "expected a single graph node")
	require.Len(t, graph[11], 1, "expected a single graph input")
	require.Len(t, graph[12], 2, "expected label and probabilities outputs")

	node := decodeFields(t, graph[1][0])
	require.Contains(t, node, protowire.Number(4))
	assert.Equal(t, "TreeEnsembleClassifier", string(node[4][0]))
	assert.Equal(t, mlDomain, string(node[7][0]))

	attrs := make(map[string]decodedAttr)
	for _, raw := range node[5] {
		attr := decodeAttr(t, raw)
		attrs[attr.name] = attr
	}
	return attrs
}

func TestConvertGraphStructure(t *testing.T) {
	data, err := Convert(stumpEnsemble())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	model := decodeFields(t, data)
	assert.Equal(t, producerName, string(model[2][0]))
	require.Len(t, model[8], 2, "expected two opset imports")

	mlOpset := decodeFields(t, model[8][0])
	assert.Equal(t, mlDomain, string(mlOpset[1][0]))
	assert.Equal(t, int64(mlOpsetV), decodeVarint(t, mlOpset[2][0]))

	graph := decodeFields(t, model[7][0])
	input := decodeFields(t, graph[11][0])
	assert.Equal(t, DefaultInputName, string(input[1][0]))

	outputNames := make([]string, 0, 2)
	for _, raw := range graph[12] {
		out := decodeFields(t, raw)
		outputNames = append(outputNames, string(out[1][0]))
	}
	assert.Equal(t, []string{OutputLabelName, OutputProbaName}, outputNames)
}

func TestConvertTreeAttributes(t *testing.T) {
	model := stumpEnsemble()
	data, err := Convert(model)
	require.NoError(t, err)

	attrs := decodeEnsembleAttrs(t, data)

	// 2 trees x 3 nodes each.
	const totalNodes = 6
	nodeAttrs := []string{
		"nodes_treeids", "nodes_nodeids", "nodes_featureids",
		"nodes_truenodeids", "nodes_falsenodeids", "nodes_missing_value_tracks_true",
	}
	for _, name := range nodeAttrs {
		require.Contains(t, attrs, name)
		assert.Len(t, attrs[name].ints, totalNodes, name)
	}
	assert.Len(t, attrs["nodes_values"].floats, totalNodes)
	assert.Len(t, attrs["nodes_modes"].strings, totalNodes)

	assert.Equal(t, []int64{0, 0, 0, 1, 1, 1}, attrs["nodes_treeids"].ints)
	assert.Equal(t, []int64{0, 1, 2, 0, 1, 2}, attrs["nodes_nodeids"].ints)
	assert.Equal(t, "BRANCH_LEQ", string(attrs["nodes_modes"].strings[0]))
	assert.Equal(t, "LEAF", string(attrs["nodes_modes"].strings[1]))
	assert.Equal(t, []int64{1, 0, 0, 1, 0, 0}, attrs["nodes_truenodeids"].ints)
	assert.Equal(t, []int64{2, 0, 0, 2, 0, 0}, attrs["nodes_falsenodeids"].ints)
	assert.Equal(t, []int64{1, 0, 0, 1, 0, 0}, attrs["nodes_missing_value_tracks_true"].ints)
	assert.InDelta(t, 0.5, attrs["nodes_values"].floats[0], 1e-7)

	// One class entry per leaf, weights scaled by shrinkage.
	require.Contains(t, attrs, "class_weights")
	assert.Equal(t, []int64{0, 0, 1, 1}, attrs["class_treeids"].ints)
	assert.Equal(t, []int64{1, 2, 1, 2}, attrs["class_nodeids"].ints)
	assert.Equal(t, []int64{0, 0, 0, 0}, attrs["class_ids"].ints)
	require.Len(t, attrs["class_weights"].floats, 4)
	assert.InDelta(t, -0.5, attrs["class_weights"].floats[0], 1e-7)
	assert.InDelta(t, 0.5, attrs["class_weights"].floats[1], 1e-7)

	assert.Equal(t, []int64{0, 1}, attrs["classlabels_int64s"].ints)
	assert.Equal(t, "LOGISTIC", string(attrs["post_transform"].s))
	require.Len(t, attrs["base_values"].floats, 1)
	assert.InDelta(t, model.InitScore, attrs["base_values"].floats[0], 1e-7)
}

func TestConvertValidation(t *testing.T) {
	_, err := Convert(nil)
	assert.Error(t, err)

	empty := lightgbm.NewModel()
	empty.Objective = lightgbm.BinaryLogistic
	empty.NumFeatures = 4
	_, err = Convert(empty)
	assert.Error(t, err, "model without trees must be rejected")

	regression := stumpEnsemble()
	regression.Objective = lightgbm.RegressionL2
	_, err = Convert(regression)
	assert.Error(t, err, "regression objective must be rejected")
}

func TestConvertDeterministic(t *testing.T) {
	model := stumpEnsemble()
	first, err := Convert(model)
	require.NoError(t, err)
	second, err := Convert(model)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestConvertOptions(t *testing.T) {
	data, err := Convert(stumpEnsemble(),
		WithInputName("features"),
		WithDocString("exported for tests"),
		WithModelVersion(3))
	require.NoError(t, err)

	model := decodeFields(t, data)
	assert.Equal(t, "exported for tests", string(model[6][0]))
	assert.Equal(t, int64(3), decodeVarint(t, model[5][0]))

	graph := decodeFields(t, model[7][0])
	input := decodeFields(t, graph[11][0])
	assert.Equal(t, "features", string(input[1][0]))

	node := decodeFields(t, graph[1][0])
	assert.Equal(t, "features", string(node[1][0]))
}

func TestExportWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, Export(stumpEnsemble(), path))

	written, err := os.ReadFile(path)
	require.NoError(t, err)

	expected, err := Convert(stumpEnsemble())
	require.NoError(t, err)
	assert.Equal(t, expected, written)
}

func TestExportOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	require.NoError(t, Export(stumpEnsemble(), path))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("stale"), written)
}

func TestConvertTrainedModel(t *testing.T) {
	// A trained ensemble must flatten with internally consistent indices:
	// every true/false child id names a node declared in the same tree.
	n := 200
	X := mat.NewDense(n, 4, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, float64((i*31+j*17)%100)/100.0)
		}
		y.Set(i, 0, float64(i%2))
	}

	clf := lightgbm.NewLGBMClassifier().
		WithNumIterations(5).
		WithNumLeaves(7).
		WithRandomState(42)
	require.NoError(t, clf.Fit(X, y))

	data, err := Convert(clf.Model)
	require.NoError(t, err)
	attrs := decodeEnsembleAttrs(t, data)

	nodeIDs := attrs["nodes_nodeids"].ints
	treeIDs := attrs["nodes_treeids"].ints
	trueIDs := attrs["nodes_truenodeids"].ints
	modes := attrs["nodes_modes"].strings
	require.Len(t, treeIDs, len(nodeIDs))
	require.Len(t, trueIDs, len(nodeIDs))

	declared := make(map[[2]int64]bool, len(nodeIDs))
	for i := range nodeIDs {
		declared[[2]int64{treeIDs[i], nodeIDs[i]}] = true
	}
	for i := range nodeIDs {
		if string(modes[i]) == "LEAF" {
			continue
		}
		assert.True(t, declared[[2]int64{treeIDs[i], trueIDs[i]}],
			"tree %d: true child %d not declared", treeIDs[i], trueIDs[i])
		assert.True(t, declared[[2]int64{treeIDs[i], attrs["nodes_falsenodeids"].ints[i]}],
			"tree %d: false child %d not declared", treeIDs[i], attrs["nodes_falsenodeids"].ints[i])
	}
}
