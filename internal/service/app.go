package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/dataset"
	"github.com/locowear/wheelwear/internal/features"
	"github.com/locowear/wheelwear/internal/model"
	"github.com/locowear/wheelwear/internal/models"
)

// DefaultMaxBatch is the largest batch accepted by Predict
const DefaultMaxBatch = 1000

// PredictionCache stores whole-batch results keyed by the prepared vectors
type PredictionCache interface {
	GetPredictions(ctx context.Context, vectors []features.Vector) ([]float64, bool, error)
	SetPredictions(ctx context.Context, vectors []features.Vector, predictions []float64) error
}

// PredictionLogger persists served batches
type PredictionLogger interface {
	LogPrediction(ctx context.Context, entry models.PredictionLog) error
}

// Options configures an App
type Options struct {
	MaxBatch      int
	ModelType     string
	ModelVersion  string
	Cache         PredictionCache
	PredictionLog PredictionLogger
	Logger        *zap.Logger
}

// Info describes the loaded model
type Info struct {
	ModelType string
	Version   string
	Features  []string
}

// App is the prediction context built once at startup. Nothing in it is
// mutated after NewApp returns, so it is shared by concurrent requests.
type App struct {
	predictor model.Predictor
	schema    features.Schema
	repairs   *dataset.RepairIndex
	maxBatch  int
	info      Info
	cache     PredictionCache
	predLog   PredictionLogger
	logger    *zap.Logger
}

// NewApp builds the application context
func NewApp(predictor model.Predictor, schema features.Schema, repairs *dataset.RepairIndex, opts Options) (*App, error) {
	if predictor == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if schema.Len() == 0 {
		return nil, fmt.Errorf("feature schema is empty")
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	if opts.ModelType == "" {
		opts.ModelType = model.ModelType
	}
	if opts.ModelVersion == "" {
		opts.ModelVersion = "1.0.0"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &App{
		predictor: predictor,
		schema:    schema,
		repairs:   repairs,
		maxBatch:  opts.MaxBatch,
		info: Info{
			ModelType: opts.ModelType,
			Version:   opts.ModelVersion,
			Features:  append([]string(nil), schema.Columns...),
		},
		cache:   opts.Cache,
		predLog: opts.PredictionLog,
		logger:  opts.Logger,
	}, nil
}

// Info returns the model description
func (a *App) Info() Info {
	return a.info
}

// MaxBatch returns the batch cap
func (a *App) MaxBatch() int {
	return a.maxBatch
}

// RepairsLoaded reports whether any repair history is available
func (a *App) RepairsLoaded() bool {
	return a.repairs.Len() > 0
}

// Result is a scored batch plus how it was served
type Result struct {
	Predictions []float64
	CacheHit    bool
}

// Predict validates, enriches and scores a batch. It returns one prediction
// per item in input order, or an error and no predictions at all.
func (a *App) Predict(ctx context.Context, items []models.PredictionItem) ([]float64, error) {
	res, err := a.PredictBatch(ctx, items)
	if err != nil {
		return nil, err
	}
	return res.Predictions, nil
}

// PredictBatch is Predict with cache metadata
func (a *App) PredictBatch(ctx context.Context, items []models.PredictionItem) (Result, error) {
	start := time.Now()

	if len(items) > a.maxBatch {
		return Result{}, fmt.Errorf("%w: got %d, maximum is %d", ErrBatchTooLarge, len(items), a.maxBatch)
	}
	if len(items) == 0 {
		return Result{Predictions: []float64{}}, nil
	}

	records := make([]features.Record, len(items))
	for i, item := range items {
		if err := Validate(i, item); err != nil {
			return Result{}, err
		}
		records[i] = a.Enrich(item)
	}

	vectors, err := features.PrepareBatch(records, a.schema)
	if err != nil {
		a.logger.Error("feature preparation failed", zap.Error(err))
		return Result{}, &InferenceError{Stage: "feature preparation", Err: err}
	}

	cacheHit := false
	var predictions []float64
	if a.cache != nil {
		cached, ok, err := a.cache.GetPredictions(ctx, vectors)
		if err != nil {
			a.logger.Warn("prediction cache read failed", zap.Error(err))
		} else if ok && len(cached) == len(items) {
			predictions = cached
			cacheHit = true
		}
	}

	if !cacheHit {
		predictions, err = a.predictor.Predict(vectors)
		if err != nil {
			a.logger.Error("inference failed", zap.Error(err))
			return Result{}, &InferenceError{Stage: "inference", Err: err}
		}
		if len(predictions) != len(items) {
			return Result{}, &InferenceError{
				Stage: "inference",
				Err:   fmt.Errorf("model returned %d predictions for %d items", len(predictions), len(items)),
			}
		}
		if a.cache != nil {
			if err := a.cache.SetPredictions(ctx, vectors, predictions); err != nil {
				a.logger.Warn("prediction cache write failed", zap.Error(err))
			}
		}
	}

	latency := time.Since(start)
	a.logger.Info("batch predicted",
		zap.Int("items", len(items)),
		zap.Bool("cache_hit", cacheHit),
		zap.Duration("latency", latency),
	)

	if a.predLog != nil {
		entry := models.PredictionLog{
			BatchID:        uuid.NewString(),
			ItemCount:      len(items),
			MeanPrediction: mean(predictions),
			CacheHit:       cacheHit,
			LatencyMs:      latency.Milliseconds(),
			ModelVersion:   a.info.Version,
			CreatedAt:      time.Now().UTC(),
		}
		if err := a.predLog.LogPrediction(ctx, entry); err != nil {
			a.logger.Warn("failed to log prediction batch", zap.String("batch_id", entry.BatchID), zap.Error(err))
		}
	}

	return Result{Predictions: predictions, CacheHit: cacheHit}, nil
}

// Validate checks the fields every item must carry
func Validate(index int, item models.PredictionItem) error {
	switch {
	case item.LocomotiveSeries == "":
		return &ValidationError{Index: index, Field: "locomotive_series", Reason: "is required"}
	case !item.LocomotiveNumber.Valid || item.LocomotiveNumber.Value == "":
		return &ValidationError{Index: index, Field: "locomotive_number", Reason: "is required"}
	case item.Depo == nil:
		return &ValidationError{Index: index, Field: "depo", Reason: "is required"}
	case item.MileageStart == nil:
		return &ValidationError{Index: index, Field: "mileage_start", Reason: "is required"}
	case math.IsNaN(*item.MileageStart) || math.IsInf(*item.MileageStart, 0):
		return &ValidationError{Index: index, Field: "mileage_start", Reason: "must be finite"}
	case *item.MileageStart < 0:
		return &ValidationError{Index: index, Field: "mileage_start", Reason: "must be non-negative"}
	}
	return nil
}

// Enrich turns an item into a raw feature record. Repair counters sent with
// the item win; otherwise they come from the repair history, and a
// locomotive without history gets zeros.
func (a *App) Enrich(item models.PredictionItem) features.Record {
	rec := features.Record{
		"locomotive_series": item.LocomotiveSeries,
		"locomotive_number": models.CanonicalNumber(item.LocomotiveNumber.Value),
		"mileage_start":     *item.MileageStart,
		"steel_num":         nil,
	}
	if item.Depo != nil {
		rec["depo"] = *item.Depo
	}
	if item.SteelNum.Valid {
		rec["steel_num"] = item.SteelNum.Value
	}

	if item.HasRepairStats() {
		rec[dataset.ColTotalRepairs] = valueOrZero(item.TotalRepairs)
		rec[dataset.ColRepairType1] = valueOrZero(item.RepairType1)
		rec[dataset.ColRepairType2] = valueOrZero(item.RepairType2)
		rec[dataset.ColRepairType3] = valueOrZero(item.RepairType3)
		rec[dataset.ColTurningCount] = valueOrZero(item.TurningCount)
		rec[dataset.ColUniqueServiceDates] = valueOrZero(item.UniqueServiceDates)
		return rec
	}

	agg, _ := a.repairs.Lookup(item.Key())
	rec[dataset.ColTotalRepairs] = float64(agg.TotalRepairs)
	rec[dataset.ColRepairType1] = float64(agg.RepairType1)
	rec[dataset.ColRepairType2] = float64(agg.RepairType2)
	rec[dataset.ColRepairType3] = float64(agg.RepairType3)
	rec[dataset.ColTurningCount] = float64(agg.TurningCount)
	rec[dataset.ColUniqueServiceDates] = float64(agg.UniqueServiceDates)
	return rec
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
