package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/models"
	"github.com/locowear/wheelwear/internal/service"
)

// CacheHitLocal is the fiber local carrying whether /predict was served from cache
const CacheHitLocal = "cache_hit"

// HealthCheck is an optional dependency probe reported by /ready
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the prediction endpoints
type Handler struct {
	app    *service.App
	checks []HealthCheck
	logger *zap.Logger
}

// NewHandler creates the handler set around an application context
func NewHandler(app *service.App, logger *zap.Logger, checks ...HealthCheck) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{app: app, checks: checks, logger: logger}
}

// PredictRequest is the wrapped form of the /predict body
type PredictRequest struct {
	Items []models.PredictionItem `json:"items"`
}

// Root handles GET /
func (h *Handler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Wear Intensity Predictor API",
		"status":  "ok",
		"version": h.app.Info().Version,
	})
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "healthy",
		"model_loaded":   true,
		"repairs_loaded": h.app.RepairsLoaded(),
	})
}

// Ready handles GET /ready and probes the optional backends
func (h *Handler) Ready(c *fiber.Ctx) error {
	ctx := c.Context()

	checks := fiber.Map{}
	status := "ready"
	httpStatus := fiber.StatusOK
	for _, hc := range h.checks {
		if err := hc.Check(ctx); err != nil {
			checks[hc.Name] = err.Error()
			status = "unavailable"
			httpStatus = fiber.StatusServiceUnavailable
			continue
		}
		checks[hc.Name] = "ok"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

// Info handles GET /info
func (h *Handler) Info(c *fiber.Ctx) error {
	info := h.app.Info()

	sample := info.Features
	if len(sample) > 10 {
		sample = sample[:10]
	}

	return c.JSON(fiber.Map{
		"model_type":     info.ModelType,
		"features_count": len(info.Features),
		"features":       sample,
		"version":        info.Version,
		"max_batch":      h.app.MaxBatch(),
		"input_format": fiber.Map{
			"type": "array",
			"items": fiber.Map{
				"locomotive_series": "string",
				"locomotive_number": "integer or string",
				"depo":              "string",
				"steel_num":         "string, number or null",
				"mileage_start":     "number",
			},
		},
		"output_format": "array of numbers",
	})
}

// Predict handles POST /predict
func (h *Handler) Predict(c *fiber.Ctx) error {
	items, err := decodeItems(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	res, err := h.app.PredictBatch(c.UserContext(), items)
	if err != nil {
		return err
	}
	c.Locals(CacheHitLocal, res.CacheHit)

	return c.JSON(res.Predictions)
}

// decodeItems accepts either a bare JSON array or {"items": [...]}
func decodeItems(body []byte) ([]models.PredictionItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	var items []models.PredictionItem
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
	case '{':
		var req PredictRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return nil, err
		}
		if req.Items == nil {
			return nil, fmt.Errorf("missing items array")
		}
		items = req.Items
	default:
		return nil, fmt.Errorf("expected a JSON array or object")
	}
	return items, nil
}
