package onnx

import (
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Abdullahalhasan627/ShieldAI/pkg/errors"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initRuntime initializes the ONNX Runtime environment. Safe to call
// multiple times; only the first call has any effect. An empty libPath
// leaves the library resolution to the default search order.
func initRuntime(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Session runs inference on an exported classifier model through the ONNX
// Runtime, for cross-checking exports against the native predictor.
type Session struct {
	session     *ort.DynamicAdvancedSession
	inputName   string
	numFeatures int64
}

// OpenSession loads an exported model and creates an inference session.
// It validates the model's input shape and probes for the probability
// output tensor.
func OpenSession(modelPath, libPath string) (*Session, error) {
	if err := initRuntime(libPath); err != nil {
		return nil, errors.Wrap(err, "onnx: initializing runtime")
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "onnx: reading model info from %s", modelPath)
	}
	if len(inputs) != 1 {
		return nil, errors.Newf("onnx: expected a single input tensor, model has %d", len(inputs))
	}
	input := inputs[0]
	if len(input.Dimensions) != 2 {
		return nil, errors.Newf("onnx: expected 2D input tensor, got %v", input.Dimensions)
	}
	numFeatures := input.Dimensions[1]
	if numFeatures <= 0 {
		return nil, errors.Newf("onnx: input tensor has non-fixed feature dimension %d", numFeatures)
	}

	hasProba := false
	for _, out := range outputs {
		if out.Name == OutputProbaName {
			hasProba = true
		}
	}
	if !hasProba {
		return nil, errors.Newf("onnx: model has no %q output", OutputProbaName)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "onnx: creating session options")
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{input.Name},
		[]string{OutputProbaName},
		opts,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "onnx: creating session for %s", modelPath)
	}

	return &Session{
		session:     session,
		inputName:   input.Name,
		numFeatures: numFeatures,
	}, nil
}

// NumFeatures returns the feature count declared by the model input.
func (s *Session) NumFeatures() int {
	return int(s.numFeatures)
}

// PredictProba runs inference on a flat row-major [batch * numFeatures]
// feature slice and returns the positive-class probability for each row.
func (s *Session) PredictProba(features []float32, batch int) ([]float64, error) {
	if batch <= 0 {
		return nil, errors.NewValueError("Session.PredictProba", "batch must be positive")
	}
	if int64(len(features)) != int64(batch)*s.numFeatures {
		return nil, errors.Newf("onnx: feature slice has %d values, want %d for batch %d",
			len(features), int64(batch)*s.numFeatures, batch)
	}

	in, err := ort.NewTensor(ort.NewShape(int64(batch), s.numFeatures), features)
	if err != nil {
		return nil, errors.Wrap(err, "onnx: creating input tensor")
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batch), 2))
	if err != nil {
		return nil, errors.Wrap(err, "onnx: creating output tensor")
	}
	defer out.Destroy()

	if err := s.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, errors.Wrap(err, "onnx: inference failed")
	}

	// Copy before the tensor is destroyed. Column 1 is the positive class.
	data := out.GetData()
	proba := make([]float64, batch)
	for i := 0; i < batch; i++ {
		proba[i] = float64(data[2*i+1])
	}
	return proba, nil
}

// Close releases the session resources.
func (s *Session) Close() error {
	return s.session.Destroy()
}
