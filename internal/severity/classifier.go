package severity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/asphalt-aid/backend/internal/models"
	ort "github.com/yalue/onnxruntime_go"
)

var ErrModelUnavailable = errors.New("severity model unavailable")

// Classifier runs the pothole model through onnxruntime. The underlying session
// holds fixed input/output tensors, so predictions are serialised.
type Classifier struct {
	modelPath    string
	metadataPath string
	libraryPath  string

	mu           sync.Mutex
	envReady     bool
	session      *ort.AdvancedSession
	metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewClassifier(modelPath, metadataPath, libraryPath string) *Classifier {
	return &Classifier{
		modelPath:    modelPath,
		metadataPath: metadataPath,
		libraryPath:  libraryPath,
		metadata:     DefaultMetadata(),
	}
}

// Load opens the model. Failure is logged and leaves the classifier unloaded;
// Predict retries the load.
func (c *Classifier) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *Classifier) loadLocked() error {
	if c.session != nil {
		return nil
	}
	if _, err := os.Stat(c.modelPath); err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	meta, err := LoadMetadata(c.metadataPath)
	if err != nil {
		return err
	}

	if !c.envReady {
		if c.libraryPath != "" {
			ort.SetSharedLibraryPath(c.libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
		c.envReady = true
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(c.modelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}

	c.session = session
	c.metadata = meta
	c.inputTensor = inputTensor
	c.outputTensor = outputTensor
	slog.Info("severity model loaded", "path", c.modelPath, "classes", len(meta.Classes), "image_size", meta.ImageSize)
	return nil
}

func (c *Classifier) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

func (c *Classifier) Predict(ctx context.Context, image []byte) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	img, err := Decode(image)
	if err != nil {
		return Prediction{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		if err := c.loadLocked(); err != nil {
			return Prediction{}, err
		}
	}

	input := Preprocess(img, c.metadata.ImageSize)
	data := c.inputTensor.GetData()
	if len(input) != len(data) {
		return Prediction{}, fmt.Errorf("input size mismatch: got %d, model expects %d", len(input), len(data))
	}
	copy(data, input)

	if err := c.session.Run(); err != nil {
		return Prediction{}, fmt.Errorf("inference failed: %w", err)
	}

	class, confidence := Argmax(c.outputTensor.GetData())
	p := Prediction{
		Class:      class,
		Confidence: confidence,
		Severity:   MapClass(class),
	}
	if class >= 0 && class < len(c.metadata.Classes) {
		p.Label = c.metadata.Classes[class]
	}
	return p, nil
}

func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inputTensor != nil {
		c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	if c.envReady {
		if err := ort.DestroyEnvironment(); err != nil {
			slog.Warn("destroying ONNX environment", "error", err)
		}
		c.envReady = false
	}
}

// Estimate never fails: any prediction error is logged and the default severity is returned.
func Estimate(ctx context.Context, p Predictor, image []byte, attrs ...any) Prediction {
	pred, err := p.Predict(ctx, image)
	if err != nil {
		slog.Error("severity inference failed", append(attrs, "error", err)...)
		return Prediction{Class: -1, Severity: models.DefaultSeverity}
	}
	return pred
}
