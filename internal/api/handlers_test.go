package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locowear/wheelwear/internal/dataset"
	"github.com/locowear/wheelwear/internal/features"
	"github.com/locowear/wheelwear/internal/models"
	"github.com/locowear/wheelwear/internal/service"
)

var testSchema = features.NewSchema([]string{
	"locomotive_series", "depo", "steel_num", "mileage_start",
	"total_repairs", "turning_count",
	features.RepairsPer100k, features.TurningPer100k, features.TurningRatio,
})

// mileagePredictor scores each vector as mileage_start / 1000
type mileagePredictor struct {
	err error
}

func (p mileagePredictor) Predict(vectors []features.Vector) ([]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	idx := testSchema.Index("mileage_start")
	out := make([]float64, len(vectors))
	for i, v := range vectors {
		out[i] = v.Values[idx].Num / 1000
	}
	return out, nil
}

func newTestServer(t *testing.T, p mileagePredictor, checks ...HealthCheck) *fiber.App {
	t.Helper()
	repairs := dataset.NewRepairIndex([]models.RepairAggregate{
		{LocomotiveSeries: "ВЛ80С", LocomotiveNumber: "77", TotalRepairs: 3, TurningCount: 1},
	})
	app, err := service.NewApp(p, testSchema, repairs, service.Options{MaxBatch: 3, ModelVersion: "test"})
	require.NoError(t, err)
	return NewServer(NewHandler(app, nil, checks...), ServerConfig{})
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHealth(t *testing.T) {
	app := newTestServer(t, mileagePredictor{})

	status, body := doRequest(t, app, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, true, payload["model_loaded"])
	assert.Equal(t, true, payload["repairs_loaded"])
}

func TestReady(t *testing.T) {
	ok := HealthCheck{Name: "redis", Check: func(context.Context) error { return nil }}
	down := HealthCheck{Name: "database", Check: func(context.Context) error { return errors.New("connection refused") }}

	status, _ := doRequest(t, newTestServer(t, mileagePredictor{}, ok), http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, status)

	status, body := doRequest(t, newTestServer(t, mileagePredictor{}, ok, down), http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, string(body), "connection refused")
}

func TestInfo(t *testing.T) {
	app := newTestServer(t, mileagePredictor{})

	status, body := doRequest(t, app, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, status)

	var payload struct {
		ModelType     string   `json:"model_type"`
		FeaturesCount int      `json:"features_count"`
		Features      []string `json:"features"`
		Version       string   `json:"version"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "GradientBoostedTrees", payload.ModelType)
	assert.Equal(t, testSchema.Len(), payload.FeaturesCount)
	assert.Len(t, payload.Features, testSchema.Len())
	assert.Equal(t, "test", payload.Version)
}

func TestPredict(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       []float64
		wantErr    string
	}{
		{
			name:       "bare array",
			body:       `[{"locomotive_series":"2ЭС6","locomotive_number":"1234","depo":"Екатеринбург","steel_num":"12345","mileage_start":15000}]`,
			wantStatus: http.StatusOK,
			want:       []float64{15},
		},
		{
			name:       "wrapped items with numeric number and null steel",
			body:       `{"items":[{"locomotive_series":"ВЛ80С","locomotive_number":77,"depo":"Тайга","steel_num":null,"mileage_start":2000},{"locomotive_series":"ВЛ80С","locomotive_number":"78","depo":"Тайга","mileage_start":0}]}`,
			wantStatus: http.StatusOK,
			want:       []float64{2, 0},
		},
		{
			name:       "empty batch",
			body:       `[]`,
			wantStatus: http.StatusOK,
			want:       []float64{},
		},
		{
			name:       "malformed json",
			body:       `[{"locomotive_series":`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "invalid request body",
		},
		{
			name:       "object without items",
			body:       `{"rows":[]}`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "missing items",
		},
		{
			name:       "missing mileage",
			body:       `[{"locomotive_series":"2ЭС6","locomotive_number":"1","depo":"A"}]`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "mileage_start",
		},
		{
			name:       "batch above limit",
			body:       `[` + strings.Repeat(`{"locomotive_series":"2ЭС6","locomotive_number":"1","depo":"A","mileage_start":1},`, 3) + `{"locomotive_series":"2ЭС6","locomotive_number":"1","depo":"A","mileage_start":1}]`,
			wantStatus: http.StatusBadRequest,
			wantErr:    "too many items",
		},
	}

	app := newTestServer(t, mileagePredictor{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doRequest(t, app, http.MethodPost, "/predict", tt.body)
			require.Equal(t, tt.wantStatus, status, string(body))

			if tt.wantErr != "" {
				var payload map[string]string
				require.NoError(t, json.Unmarshal(body, &payload))
				assert.Contains(t, payload["error"], tt.wantErr)
				return
			}

			var got []float64
			require.NoError(t, json.Unmarshal(body, &got))
			assert.InDeltaSlice(t, tt.want, got, 1e-9)
		})
	}
}

func TestPredictInferenceFailure(t *testing.T) {
	app := newTestServer(t, mileagePredictor{err: errors.New("model exploded")})

	status, body := doRequest(t, app, http.MethodPost, "/predict",
		`[{"locomotive_series":"2ЭС6","locomotive_number":"1","depo":"A","mileage_start":1}]`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "model exploded")
}

func TestNotFound(t *testing.T) {
	app := newTestServer(t, mileagePredictor{})

	status, body := doRequest(t, app, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"endpoint not found"}`, string(body))
}

func TestRoot(t *testing.T) {
	app := newTestServer(t, mileagePredictor{})

	status, body := doRequest(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Wear Intensity Predictor API")
}
