package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/locowear/wheelwear/internal/features"
)

// Default artifact file names
const (
	ModelFile    = "model.json"
	FeaturesFile = "features.json"
)

// ErrArtifactMismatch means the model and feature list were not saved together
var ErrArtifactMismatch = errors.New("model and feature list do not match")

// Save writes model.json and features.json into dir
func Save(dir string, m *Model) (modelPath, featuresPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create model dir: %w", err)
	}

	modelPath = filepath.Join(dir, ModelFile)
	featuresPath = filepath.Join(dir, FeaturesFile)

	if err := writeJSON(modelPath, m); err != nil {
		return "", "", fmt.Errorf("failed to write model: %w", err)
	}
	if err := writeJSON(featuresPath, m.Features); err != nil {
		return "", "", fmt.Errorf("failed to write feature list: %w", err)
	}
	return modelPath, featuresPath, nil
}

// Load reads both artifacts and checks that they belong together
func Load(modelPath, featuresPath string) (*Model, error) {
	var m Model
	if err := readJSON(modelPath, &m); err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	var cols []string
	if err := readJSON(featuresPath, &cols); err != nil {
		return nil, fmt.Errorf("failed to load feature list: %w", err)
	}

	if !slices.Equal(m.Features, cols) {
		return nil, fmt.Errorf("%w: model has %d features, list has %d", ErrArtifactMismatch, len(m.Features), len(cols))
	}
	if len(m.Trees) == 0 {
		return nil, ErrUntrainedModel
	}
	return &m, nil
}

// LoadSchema reads only the feature list
func LoadSchema(featuresPath string) (features.Schema, error) {
	var cols []string
	if err := readJSON(featuresPath, &cols); err != nil {
		return features.Schema{}, err
	}
	return features.Schema{Columns: cols}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
