package severity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/asphalt-aid/backend/internal/models"
)

// Metadata describes the exported classifier. It sits next to the model file as JSON.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
}

// Prediction is the outcome of one forward pass.
type Prediction struct {
	Class      int
	Label      string
	Confidence float32
	Severity   int
}

// Predictor turns raw photo bytes into a severity prediction.
type Predictor interface {
	Predict(ctx context.Context, image []byte) (Prediction, error)
	Loaded() bool
}

// classSeverity maps classifier output classes onto the stored 0-3 scale.
var classSeverity = map[int]int{
	0: models.SeverityNone,
	1: models.SeverityLow,
	2: models.SeverityHigh,
}

// MapClass returns the severity for a predicted class, falling back to the default for unknown classes.
func MapClass(class int) int {
	if s, ok := classSeverity[class]; ok {
		return s
	}
	return models.DefaultSeverity
}

func DefaultMetadata() Metadata {
	return Metadata{
		InputShape:  []int64{1, DefaultImageSize, DefaultImageSize, 3},
		OutputShape: []int64{1, 3},
		Classes:     []string{"normal", "minor_pothole", "major_pothole"},
		ImageSize:   DefaultImageSize,
		InputName:   "input",
		OutputName:  "output",
	}
}

// LoadMetadata reads the metadata file, filling unset fields from DefaultMetadata.
// A missing file yields the defaults.
func LoadMetadata(path string) (Metadata, error) {
	meta := DefaultMetadata()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("failed to read metadata: %w", err)
	}

	var parsed Metadata
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return meta, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if parsed.ImageSize > 0 {
		meta.ImageSize = parsed.ImageSize
		meta.InputShape = []int64{1, int64(parsed.ImageSize), int64(parsed.ImageSize), 3}
	}
	if len(parsed.InputShape) > 0 {
		meta.InputShape = parsed.InputShape
	}
	if len(parsed.OutputShape) > 0 {
		meta.OutputShape = parsed.OutputShape
	}
	if len(parsed.Classes) > 0 {
		meta.Classes = parsed.Classes
	}
	if parsed.InputName != "" {
		meta.InputName = parsed.InputName
	}
	if parsed.OutputName != "" {
		meta.OutputName = parsed.OutputName
	}
	return meta, nil
}

// Argmax returns the index and value of the largest score. Ties go to the lowest index.
func Argmax(scores []float32) (int, float32) {
	if len(scores) == 0 {
		return -1, 0
	}
	idx, best := 0, scores[0]
	for i, v := range scores[1:] {
		if v > best {
			idx, best = i+1, v
		}
	}
	return idx, best
}
