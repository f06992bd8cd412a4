package acquisition

import "gonum.org/v1/gonum/stat"

// FixSummary describes the spread of the jittered fix samples of a run
type FixSummary struct {
	Samples         int     `json:"samples"`
	MeanLatitude    float64 `json:"mean_latitude"`
	MeanLongitude   float64 `json:"mean_longitude"`
	StdDevLatitude  float64 `json:"stddev_latitude"`
	StdDevLongitude float64 `json:"stddev_longitude"`
}

func summarizeFix(lats, lons []float64) FixSummary {
	if len(lats) == 0 || len(lats) != len(lons) {
		return FixSummary{}
	}

	summary := FixSummary{Samples: len(lats)}
	if len(lats) == 1 {
		// sample standard deviation is undefined for a single value
		summary.MeanLatitude = lats[0]
		summary.MeanLongitude = lons[0]
		return summary
	}

	summary.MeanLatitude, summary.StdDevLatitude = stat.MeanStdDev(lats, nil)
	summary.MeanLongitude, summary.StdDevLongitude = stat.MeanStdDev(lons, nil)
	return summary
}
