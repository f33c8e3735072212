package onnx

import (
	"os"

	"github.com/Abdullahalhasan627/ShieldAI/lightgbm"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
	"github.com/Abdullahalhasan627/ShieldAI/pkg/log"
)

const (
	irVersion    = 8
	mlDomain     = "ai.onnx.ml"
	mlOpsetV     = 1
	onnxOpsetV   = 13
	producerName = "shieldai"
	producerVer  = "1.0.0"
)

// Default tensor names of the exported graph.
const (
	DefaultInputName = "float_input"
	OutputLabelName  = "label"
	OutputProbaName  = "probabilities"
)

// ConvertOptions controls graph metadata. Zero values fall back to the
// defaults used by the common Python converters.
type ConvertOptions struct {
	InputName    string
	GraphName    string
	DocString    string
	ModelVersion int64
}

// ConvertOption mutates ConvertOptions.
type ConvertOption func(*ConvertOptions)

// WithInputName overrides the name of the graph's feature input tensor.
func WithInputName(name string) ConvertOption {
	return func(o *ConvertOptions) { o.InputName = name }
}

// WithGraphName overrides the graph name stored in the model.
func WithGraphName(name string) ConvertOption {
	return func(o *ConvertOptions) { o.GraphName = name }
}

// WithDocString attaches a doc string to the exported model.
func WithDocString(doc string) ConvertOption {
	return func(o *ConvertOptions) { o.DocString = doc }
}

// WithModelVersion sets the model_version field of the exported model.
func WithModelVersion(v int64) ConvertOption {
	return func(o *ConvertOptions) { o.ModelVersion = v }
}

// Convert serializes a fitted binary classifier ensemble as an ONNX model
// holding a single TreeEnsembleClassifier node. The graph takes a float32
// feature matrix with a symbolic batch dimension and produces an int64
// label vector plus a per-class probability matrix.
func Convert(model *lightgbm.Model, opts ...ConvertOption) (data []byte, err error) {
	defer errors.Recover(&err, "onnx.Convert")

	if model == nil {
		return nil, errors.NewValueError("onnx.Convert", "model is nil")
	}
	if len(model.Trees) == 0 {
		return nil, errors.NewValueError("onnx.Convert", "model has no trees")
	}
	if model.NumFeatures <= 0 {
		return nil, errors.NewValueError("onnx.Convert", "model has no feature count")
	}
	if model.Objective != lightgbm.BinaryLogistic {
		return nil, errors.Newf("onnx.Convert: objective %q is not supported, only %q converts to a classifier",
			model.Objective, lightgbm.BinaryLogistic)
	}

	options := ConvertOptions{
		InputName: DefaultInputName,
		GraphName: "shieldai_tree_ensemble",
	}
	for _, opt := range opts {
		opt(&options)
	}

	node, err := treeEnsembleNode(model, options.InputName)
	if err != nil {
		return nil, err
	}

	proto := &ModelProto{
		IRVersion:       irVersion,
		ProducerName:    producerName,
		ProducerVersion: producerVer,
		ModelVersion:    options.ModelVersion,
		DocString:       options.DocString,
		Graph: Graph{
			Nodes: []Node{node},
			Name:  options.GraphName,
			Inputs: []ValueInfo{
				{
					Name: options.InputName,
					Type: TensorType{
						ElemType: TensorFloat,
						Shape: &TensorShape{Dims: []Dimension{
							{Param: "N"},
							{Value: int64(model.NumFeatures)},
						}},
					},
				},
			},
			Outputs: []ValueInfo{
				{
					Name: OutputLabelName,
					Type: TensorType{
						ElemType: TensorInt64,
						Shape: &TensorShape{Dims: []Dimension{
							{Param: "N"},
						}},
					},
				},
				{
					Name: OutputProbaName,
					Type: TensorType{
						ElemType: TensorFloat,
						Shape: &TensorShape{Dims: []Dimension{
							{Param: "N"},
							{Value: 2},
						}},
					},
				},
			},
		},
		OpsetImports: []OperatorSetID{
			{Domain: mlDomain, Version: mlOpsetV},
			{Domain: "", Version: onnxOpsetV},
		},
	}

	return proto.Marshal(), nil
}

// Export converts the model and writes the result to path, overwriting any
// existing file.
func Export(model *lightgbm.Model, path string, opts ...ConvertOption) (err error) {
	defer errors.Recover(&err, "onnx.Export")

	data, err := Convert(model, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "onnx.Export: writing %s", path)
	}

	log.GetLoggerWithName("onnx").Info("model exported",
		log.ArtifactKey, path,
		log.ArtifactBytesKey, len(data))
	return nil
}

// ensembleAttrs collects the flattened tree structure as it accumulates
// across the ensemble.
type ensembleAttrs struct {
	treeIDs      []int64
	nodeIDs      []int64
	featureIDs   []int64
	modes        [][]byte
	values       []float32
	trueIDs      []int64
	falseIDs     []int64
	missingTrue  []int64
	classTreeIDs []int64
	classNodeIDs []int64
	classIDs     []int64
	classWeights []float32
}

func treeEnsembleNode(model *lightgbm.Model, inputName string) (Node, error) {
	var a ensembleAttrs
	for ti := range model.Trees {
		tree := &model.Trees[ti]
		if len(tree.Nodes) == 0 {
			return Node{}, errors.Newf("onnx: tree %d has no nodes", ti)
		}
		for ni := range tree.Nodes {
			n := &tree.Nodes[ni]
			a.treeIDs = append(a.treeIDs, int64(ti))
			a.nodeIDs = append(a.nodeIDs, int64(ni))
			if n.IsLeaf() {
				a.featureIDs = append(a.featureIDs, 0)
				a.modes = append(a.modes, []byte("LEAF"))
				a.values = append(a.values, 0)
				a.trueIDs = append(a.trueIDs, 0)
				a.falseIDs = append(a.falseIDs, 0)
				a.missingTrue = append(a.missingTrue, 0)

				// One aggregated score per leaf. The runtime reads it as
				// the positive-class raw score and derives both class
				// probabilities from it after the post transform.
				a.classTreeIDs = append(a.classTreeIDs, int64(ti))
				a.classNodeIDs = append(a.classNodeIDs, int64(ni))
				a.classIDs = append(a.classIDs, 0)
				a.classWeights = append(a.classWeights, float32(n.LeafValue*tree.ShrinkageRate))
				continue
			}

			if n.SplitFeature < 0 || n.SplitFeature >= model.NumFeatures {
				return Node{}, errors.Newf("onnx: tree %d node %d splits on feature %d, model has %d features",
					ti, ni, n.SplitFeature, model.NumFeatures)
			}
			a.featureIDs = append(a.featureIDs, int64(n.SplitFeature))
			a.modes = append(a.modes, []byte("BRANCH_LEQ"))
			a.values = append(a.values, float32(n.Threshold))
			a.trueIDs = append(a.trueIDs, int64(n.LeftChild))
			a.falseIDs = append(a.falseIDs, int64(n.RightChild))
			if n.DefaultLeft {
				a.missingTrue = append(a.missingTrue, 1)
			} else {
				a.missingTrue = append(a.missingTrue, 0)
			}
		}
	}

	return Node{
		Inputs:  []string{inputName},
		Outputs: []string{OutputLabelName, OutputProbaName},
		Name:    "TreeEnsembleClassifier",
		OpType:  "TreeEnsembleClassifier",
		Domain:  mlDomain,
		Attributes: []Attribute{
			{Name: "base_values", Type: AttrFloats, Floats: []float32{float32(model.InitScore)}},
			{Name: "class_ids", Type: AttrInts, Ints: a.classIDs},
			{Name: "class_nodeids", Type: AttrInts, Ints: a.classNodeIDs},
			{Name: "class_treeids", Type: AttrInts, Ints: a.classTreeIDs},
			{Name: "class_weights", Type: AttrFloats, Floats: a.classWeights},
			{Name: "classlabels_int64s", Type: AttrInts, Ints: []int64{0, 1}},
			{Name: "nodes_falsenodeids", Type: AttrInts, Ints: a.falseIDs},
			{Name: "nodes_featureids", Type: AttrInts, Ints: a.featureIDs},
			{Name: "nodes_missing_value_tracks_true", Type: AttrInts, Ints: a.missingTrue},
			{Name: "nodes_modes", Type: AttrStrings, Strings: a.modes},
			{Name: "nodes_nodeids", Type: AttrInts, Ints: a.nodeIDs},
			{Name: "nodes_treeids", Type: AttrInts, Ints: a.treeIDs},
			{Name: "nodes_truenodeids", Type: AttrInts, Ints: a.trueIDs},
			{Name: "nodes_values", Type: AttrFloats, Floats: a.values},
			{Name: "post_transform", Type: AttrString, S: []byte("LOGISTIC")},
		},
	}, nil
}
