package analytics

import (
	"math"

	"dga-topology/models"

	"gonum.org/v1/gonum/stat"
)

// Default change-point flagging parameters.
const (
	DefaultFlagWindow    = 50
	DefaultFlagThreshold = 2.0
)

// AnomalyDetector flags values whose z-score within the trailing window
// exceeds threshold.
type AnomalyDetector struct {
	window    *RollingWindow
	threshold float64
}

func NewAnomalyDetector(windowSize int, threshold float64) *AnomalyDetector {
	if windowSize <= 0 {
		windowSize = DefaultFlagWindow
	}
	if threshold <= 0 {
		threshold = DefaultFlagThreshold
	}

	return &AnomalyDetector{
		window:    NewRollingWindow(windowSize),
		threshold: threshold,
	}
}

// Detect adds value to the window and scores it against the window contents.
// NaN values are neither added nor flagged.
func (ad *AnomalyDetector) Detect(value float64) (bool, float64) {
	if math.IsNaN(value) {
		return false, 0.0
	}

	ad.window.Add(value)

	if ad.window.Len() < 2 {
		return false, 0.0
	}

	mean, stdDev := stat.PopMeanStdDev(ad.window.Values(), nil)
	if stdDev == 0 {
		return false, 0.0
	}

	zScore := math.Abs((value - mean) / stdDev)

	return zScore > ad.threshold, zScore
}

// FlagChangePoints runs a fresh detector over the distances of homology
// dimension dim and returns the flagged steps in order.
func FlagChangePoints(series *models.ChangeScoreSeries, dim, windowSize int, threshold float64) []models.ChangePoint {
	detector := NewAnomalyDetector(windowSize, threshold)
	points := []models.ChangePoint{}

	for _, sc := range series.Scores {
		if dim >= len(sc.Distances) {
			continue
		}

		value := sc.Distances[dim]
		if flagged, z := detector.Detect(value); flagged {
			points = append(points, models.ChangePoint{
				Index:     sc.Index,
				Timestamp: sc.Timestamp,
				Score:     value,
				ZScore:    z,
			})
		}
	}

	return points
}
