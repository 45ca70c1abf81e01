// Package layout runs DocLayout-YOLO ONNX inference over rasterized pages
// and decodes the detections back into source-image coordinates.
package layout

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/liunuozhi/pdf2zh-app/internal/logger"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

// sharedLibraryEnv overrides the onnxruntime shared library location.
const sharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// sessions is the process-wide session registry, keyed by model file path.
// Sessions are created lazily on first use and never destroyed; the mutex
// also serializes Run calls, since the pipeline is sequential per run and
// session re-entrancy is not assumed.
var sessions = struct {
	sync.Mutex
	byPath map[string]*modelSession
}{byPath: make(map[string]*modelSession)}

type modelSession struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

// EnsureModel loads the inference session for modelPath if it is not already
// resident. Safe to call repeatedly; the first call pays the initialization
// cost for the whole process.
func EnsureModel(modelPath string) error {
	sessions.Lock()
	defer sessions.Unlock()
	_, err := ensureLocked(modelPath)
	return err
}

func ensureLocked(modelPath string) (*modelSession, error) {
	if s, ok := sessions.byPath[modelPath]; ok {
		return s, nil
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, types.NewError(types.ErrAssetMissing, "layout model not readable", err)
	}

	if !ort.IsInitialized() {
		if p := os.Getenv(sharedLibraryEnv); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, types.NewError(types.ErrInferenceFailed, "failed to initialize onnxruntime", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, types.NewError(types.ErrInferenceFailed, "failed to inspect layout model", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, types.NewError(types.ErrInferenceFailed,
			fmt.Sprintf("layout model has %d inputs and %d outputs", len(inputs), len(outputs)), nil)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, types.NewError(types.ErrInferenceFailed, "failed to create session options", err)
	}
	defer opts.Destroy()

	sess, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, types.NewError(types.ErrInferenceFailed, "failed to create inference session", err)
	}

	s := &modelSession{
		session:    sess,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}
	sessions.byPath[modelPath] = s

	logger.Info("layout model loaded",
		logger.String("model", modelPath),
		logger.String("input", s.inputName),
		logger.String("output", s.outputName))
	return s, nil
}

// run feeds one [1,3,S,S] tensor through the model and returns the raw first
// output with its shape. The caller owns neither tensor after return.
func run(modelPath string, input []float32) (data []float32, shape []int64, err error) {
	sessions.Lock()
	defer sessions.Unlock()

	s, err := ensureLocked(modelPath)
	if err != nil {
		return nil, nil, err
	}

	inTensor, err := ort.NewTensor(ort.NewShape(1, 3, inputSize, inputSize), input)
	if err != nil {
		return nil, nil, types.NewError(types.ErrInferenceFailed, "failed to create input tensor", err)
	}
	defer inTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{inTensor}, outputs); err != nil {
		return nil, nil, types.NewError(types.ErrInferenceFailed, "layout inference failed", err)
	}

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
		return nil, nil, types.NewError(types.ErrInferenceFailed, "layout model produced a non-float32 output", nil)
	}
	defer outTensor.Destroy()

	src := outTensor.GetData()
	data = make([]float32, len(src))
	copy(data, src)
	return data, outTensor.GetShape(), nil
}
