// Package ranking ranks candidate records against a target by blended
// text and categorical similarity, with calibration support.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	cal, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		log.Warn("using default calibration", "error", err)
//	}
//
//	results, err := ranking.RankSimilar(target, candidates, ranking.Options{
//		Calibration: cal,
//		Limit:       5,
//	})
//
// Composite Score:
//
// The composite score is the cosine similarity of the TF-IDF vectors,
// clipped to [0, 1], plus exact-match bonuses for the classification,
// organization and category fields, capped at 1.0. Bonuses are additive so
// ranking stays monotonic in each signal and a strong categorical match
// still surfaces a candidate whose text is sparse.
//
// Calibration:
//
// Bonus amounts, matched field names, the default threshold and the default
// limit can be tuned per deployment through a JSON calibration file loaded at
// startup. See configs/ranking.calibration.json for the default values.
package ranking
