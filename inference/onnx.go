package inference

import (
	"context"
	"image"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig describes one ONNX model to load.
type ONNXConfig struct {
	// ModelPath is the .onnx file on disk.
	ModelPath string
	// SharedLibPath locates the onnxruntime shared library.
	SharedLibPath string
	// InputSide is the square model input edge, typically 640.
	InputSide int
	// DetectionShape is the detection output tensor shape,
	// e.g. [1, 116, 8400] for a segmentation export.
	DetectionShape []int64
	// PrototypeShape is the prototype mask output shape, e.g.
	// [1, 32, 160, 160]. Nil for detection-only models.
	PrototypeShape []int64
	// UseAcceleration appends a GPU/NPU execution provider when available.
	UseAcceleration bool
}

// ONNXEngine runs a YOLO-family ONNX export through onnxruntime. The session
// is exclusive: a mutex serializes Infer calls because the interpreter is not
// thread-safe.
type ONNXEngine struct {
	mu      sync.Mutex
	cfg     ONNXConfig
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	outputs []*ort.Tensor[float32]
}

// NewONNXEngine loads the model and allocates its IO tensors.
//
// Arguments:
//   - cfg: Model and runtime configuration.
//
// Returns:
//   - *ONNXEngine: The ready engine.
//   - error: When the runtime library or model cannot be loaded. Callers fall
//     back to the simulated engine on error.
func NewONNXEngine(cfg ONNXConfig) (*ONNXEngine, error) {
	if _, err := os.Stat(cfg.SharedLibPath); os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "ONNX Runtime library not found at %s", cfg.SharedLibPath)
	}
	ort.SetSharedLibraryPath(cfg.SharedLibPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "initializing ORT environment")
	}

	inputShape := ort.NewShape(1, 3, int64(cfg.InputSide), int64(cfg.InputSide))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}

	outputNames := []string{"output0"}
	outputTensors := []*ort.Tensor[float32]{}
	detTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.DetectionShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "creating detection output tensor")
	}
	outputTensors = append(outputTensors, detTensor)

	if len(cfg.PrototypeShape) > 0 {
		protoTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.PrototypeShape...))
		if err != nil {
			inputTensor.Destroy()
			detTensor.Destroy()
			return nil, errors.Wrap(err, "creating prototype output tensor")
		}
		outputTensors = append(outputTensors, protoTensor)
		outputNames = append(outputNames, "output1")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		for _, t := range outputTensors {
			t.Destroy()
		}
		return nil, errors.Wrap(err, "creating ORT session options")
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(4)
	options.SetInterOpNumThreads(2)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	if cfg.UseAcceleration {
		// Best effort: fall back to CPU silently when no provider binds.
		if err := options.AppendExecutionProviderCoreML(0); err != nil {
			if cudaOpts, cudaErr := ort.NewCUDAProviderOptions(); cudaErr == nil {
				_ = options.AppendExecutionProviderCUDA(cudaOpts)
			}
		}
	}

	arbitraryOutputs := make([]ort.ArbitraryTensor, len(outputTensors))
	for i, t := range outputTensors {
		arbitraryOutputs[i] = t
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		outputNames,
		[]ort.ArbitraryTensor{inputTensor},
		arbitraryOutputs,
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		for _, t := range outputTensors {
			t.Destroy()
		}
		return nil, errors.Wrap(err, "creating ORT session")
	}

	return &ONNXEngine{cfg: cfg, session: session, input: inputTensor, outputs: outputTensors}, nil
}

// Infer runs one frame through the model.
func (e *ONNXEngine) Infer(ctx context.Context, img image.Image) ([]Output, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, errors.New("engine closed")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := PrepareInput(img, e.input.GetData(), e.cfg.InputSide); err != nil {
		return nil, errors.Wrap(err, "preparing input")
	}
	if err := e.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running inference")
	}

	outputs := make([]Output, len(e.outputs))
	shapes := [][]int64{e.cfg.DetectionShape, e.cfg.PrototypeShape}
	for i, t := range e.outputs {
		src := t.GetData()
		data := make([]float32, len(src))
		copy(data, src)
		outputs[i] = Output{Data: data, Shape: shapes[i]}
	}
	return outputs, nil
}

// Name identifies the engine.
func (e *ONNXEngine) Name() string { return "onnx" }

// Close destroys the session and its tensors.
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.input != nil {
		e.input.Destroy()
		e.input = nil
	}
	for _, t := range e.outputs {
		t.Destroy()
	}
	e.outputs = nil
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return nil
}
