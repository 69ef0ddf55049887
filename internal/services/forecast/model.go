package forecast

import (
	"math"
	"sort"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/services/features"
)

const diagnosticsWindow = 30

// Model turns an aligned feature/target dataset into a PredictionResult.
// It owns two fits: an evaluation fit on all pairs but the last (for
// out-of-sample diagnostics) and a production fit on every pair (for the
// forecast itself).
type Model struct {
	cfg ForestConfig
}

func NewModel(cfg ForestConfig) *Model {
	return &Model{cfg: cfg}
}

// TrainAndPredict fits the ensemble and predicts the next close for the
// dataset's final feature vector. Every internal fault, panics included,
// collapses to a PredictionFailed failure.
func (m *Model) TrainAndPredict(ticker string, ds *features.Dataset) (result *models.PredictionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = models.NewFailure(models.PredictionFailed, "model fault: %v", r)
		}
	}()

	pairs := ds.Pairs()
	samples := make([][]float64, pairs)
	for i := 0; i < pairs; i++ {
		samples[i] = toRow(ds.Vectors[i])
	}
	targets := ds.Targets
	lastVec := toRow(ds.Last())
	lastClose := ds.Last().Values[models.FeatClose]

	// Evaluation fit: hold out the final pair so diagnostics include one
	// genuinely out-of-sample point.
	evalForest, ferr := FitForest(samples[:pairs-1], targets[:pairs-1], m.cfg)
	if ferr != nil {
		return nil, models.WrapFailure(models.PredictionFailed, ferr, "evaluation fit failed")
	}

	diagStart := pairs - diagnosticsWindow
	if diagStart < 0 {
		diagStart = 0
	}

	diagnostics := make([]models.PredictedPoint, 0, pairs-diagStart)
	var absErrSum, naiveErrSum float64
	for i := diagStart; i < pairs; i++ {
		predicted := evalForest.Predict(samples[i])
		actual := targets[i]
		diagnostics = append(diagnostics, models.PredictedPoint{
			Date:      ds.Vectors[i].Date,
			Actual:    actual,
			Predicted: predicted,
		})
		absErrSum += math.Abs(actual - predicted)
		// Naive baseline: tomorrow's close equals today's.
		naiveErrSum += math.Abs(actual - ds.Vectors[i].Values[models.FeatClose])
	}

	n := float64(len(diagnostics))
	mae := absErrSum / n
	naiveMAE := naiveErrSum / n

	metrics := models.EvalMetrics{
		MAE:           mae,
		NaiveMAE:      naiveMAE,
		BeatsBaseline: mae <= naiveMAE,
	}
	if lastClose > 0 {
		metrics.RelativeMAE = mae / lastClose
	}
	if naiveMAE > 0 {
		metrics.Improvement = (naiveMAE - mae) / naiveMAE
	}

	// Production fit: all available signal.
	prodForest, ferr := FitForest(samples, targets, m.cfg)
	if ferr != nil {
		return nil, models.WrapFailure(models.PredictionFailed, ferr, "production fit failed")
	}

	predicted := prodForest.Predict(lastVec)
	if !isFinite(predicted) {
		return nil, models.NewFailure(models.PredictionFailed, "non-finite prediction")
	}

	treePreds := prodForest.TreePredictions(lastVec)
	confidence := confidenceFromDispersion(treePreds, predicted)

	return &models.PredictionResult{
		Ticker:            ticker,
		PredictedClose:    predicted,
		LastClose:         lastClose,
		Confidence:        confidence,
		FeatureImportance: rankedImportances(prodForest),
		Diagnostics:       diagnostics,
		Metrics:           metrics,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

// confidenceFromDispersion maps the 5th..95th percentile spread of per-tree
// predictions onto [0.1, 1.0]. Non-finite intermediate values clamp to the
// floor.
func confidenceFromDispersion(treePreds []float64, predicted float64) float64 {
	lower := percentile(treePreds, 0.05)
	upper := percentile(treePreds, 0.95)

	conf := 1 - (upper-lower)/predicted
	if !isFinite(conf) {
		return 0.1
	}
	if conf < 0.1 {
		return 0.1
	}
	if conf > 1.0 {
		return 1.0
	}
	return conf
}

// rankedImportances pairs normalized impurity importances with feature
// names, sorted descending by weight.
func rankedImportances(f *Forest) []models.FeatureWeight {
	imps := f.Importances()
	out := make([]models.FeatureWeight, len(imps))
	for i, w := range imps {
		out[i] = models.FeatureWeight{Name: models.FeatureNames[i], Weight: w}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Weight > out[b].Weight
	})
	return out
}

// toRow flattens a feature vector into the canonical feature order.
func toRow(v models.FeatureVector) []float64 {
	row := make([]float64, len(models.FeatureNames))
	for i, name := range models.FeatureNames {
		row[i] = v.Values[name]
	}
	return row
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
