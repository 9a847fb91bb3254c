package stats

import (
	"sort"

	"github.com/splitkit/splitkit/internal/store"
)

// MinSampleSize is the fixed per-variant assignment count a variant needs
// before it can qualify for winner selection.
const MinSampleSize = 30

// maxConfidence caps the heuristic confidence score.
const maxConfidence = 95

// VariantMetrics holds derived per-variant aggregates. Computed on demand,
// never persisted.
type VariantMetrics struct {
	VariantID      string
	VariantName    string
	TotalUsers     int
	Conversions    int
	ConversionRate float64 // percent
	AverageValue   float64
	CILower        float64 // Wilson 95% interval on the conversion proportion
	CIUpper        float64
}

// ExperimentResults is the derived outcome report for one experiment.
// Winner is empty when fewer than two variants reach MinSampleSize.
type ExperimentResults struct {
	ExperimentID string
	Variants     []VariantMetrics // declared variant order
	Winner       string
	Confidence   float64
}

// Analyze aggregates assignments and conversions into per-variant metrics
// and nominates a winner. Every declared variant appears in the output,
// including ones with zero assignments.
//
// The confidence score is a heuristic on the relative rate difference, not
// a statistical significance test: min(95, 50 + (top-second)/top*100).
// Do not present it to callers as statistically rigorous.
func Analyze(exp *store.Experiment, assignments []*store.Assignment, conversions []*store.ConversionEvent) *ExperimentResults {
	metrics := make([]VariantMetrics, len(exp.Variants))
	index := make(map[string]int, len(exp.Variants))
	valueSums := make([]float64, len(exp.Variants))
	valueCounts := make([]int, len(exp.Variants))

	for i, v := range exp.Variants {
		metrics[i] = VariantMetrics{VariantID: v.ID, VariantName: v.Name}
		index[v.ID] = i
	}

	for _, a := range assignments {
		if i, ok := index[a.VariantID]; ok {
			metrics[i].TotalUsers++
		}
	}

	for _, ev := range conversions {
		i, ok := index[ev.VariantID]
		if !ok {
			continue
		}
		metrics[i].Conversions++
		if ev.Value != nil {
			valueSums[i] += *ev.Value
			valueCounts[i]++
		}
	}

	for i := range metrics {
		if metrics[i].TotalUsers > 0 {
			metrics[i].ConversionRate = float64(metrics[i].Conversions) / float64(metrics[i].TotalUsers) * 100
		}
		if valueCounts[i] > 0 {
			metrics[i].AverageValue = valueSums[i] / float64(valueCounts[i])
		}
		metrics[i].CILower, metrics[i].CIUpper = WilsonInterval(metrics[i].Conversions, metrics[i].TotalUsers, 0.95)
	}

	results := &ExperimentResults{
		ExperimentID: exp.ID,
		Variants:     metrics,
	}

	var qualifying []VariantMetrics
	for _, m := range metrics {
		if m.TotalUsers >= MinSampleSize {
			qualifying = append(qualifying, m)
		}
	}

	if len(qualifying) < 2 {
		return results
	}

	// Stable sort keeps declaration order on rate ties.
	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].ConversionRate > qualifying[j].ConversionRate
	})

	top, second := qualifying[0], qualifying[1]

	relativeDiff := 0.0
	if top.ConversionRate > 0 {
		relativeDiff = (top.ConversionRate - second.ConversionRate) / top.ConversionRate * 100
	}

	confidence := 50 + relativeDiff
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	results.Winner = top.VariantID
	results.Confidence = confidence

	return results
}
