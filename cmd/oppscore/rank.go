package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/onnwee/oppscore/internal/batch"
	"github.com/onnwee/oppscore/internal/ranking"
	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/vectorize"
)

var (
	targetFlag = &cli.StringFlag{
		Name:    "target",
		Aliases: []string{"t"},
		Usage:   "Id of the record to rank the others against; ranks every record when empty",
	}

	thresholdFlag = &cli.FloatFlag{
		Name:  "threshold",
		Usage: "Minimum composite score kept; the calibration threshold when unset",
	}

	limitFlag = &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum matches per target, 0 uses the calibration limit",
	}

	calibrationFlag = &cli.StringFlag{
		Name:    "calibration",
		Usage:   "JSON ranking calibration file",
		Sources: cli.EnvVars("RANKING_CALIBRATION_PATH"),
	}

	maxFeaturesFlag = &cli.IntFlag{
		Name:    "max-features",
		Usage:   "Vocabulary size of the text vectorizer",
		Value:   vectorize.DefaultMaxFeatures,
		Sources: cli.EnvVars("VECTORIZER_MAX_FEATURES"),
	}

	rankCmd = &cli.Command{
		Name:    "rank",
		Aliases: []string{"r"},
		Usage:   "Rank the input records by similarity",
		Action:  cmdRank,
		Flags: []cli.Flag{
			inputFlag,
			targetFlag,
			thresholdFlag,
			limitFlag,
			calibrationFlag,
			maxFeaturesFlag,
			concurrencyFlag,
		},
	}
)

type rankOutput struct {
	TargetID string                     `json:"target_id" yaml:"target_id"`
	Results  []ranking.SimilarityResult `json:"results" yaml:"results"`
	Count    int                        `json:"count" yaml:"count"`
}

func cmdRank(ctx context.Context, cmd *cli.Command) error {
	recs, err := readRecords(cmd, cmd.String(inputFlag.Name))
	if err != nil {
		return err
	}

	opts := ranking.Options{
		Limit:      cmd.Int(limitFlag.Name),
		Vectorizer: vectorize.Options{MaxFeatures: cmd.Int(maxFeaturesFlag.Name)},
	}
	if cmd.IsSet(thresholdFlag.Name) {
		threshold := cmd.Float(thresholdFlag.Name)
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("threshold must be between 0 and 1, got %v", threshold)
		}
		opts.Threshold = &threshold
	}
	if path := cmd.String(calibrationFlag.Name); path != "" {
		cal, err := ranking.LoadCalibration(path)
		if err != nil {
			return fmt.Errorf("loading calibration: %w", err)
		}
		opts.Calibration = cal
	}

	if id := cmd.String(targetFlag.Name); id != "" {
		target, candidates, err := splitTarget(recs, id)
		if err != nil {
			return err
		}
		results, err := ranking.RankSimilar(target, candidates, opts)
		if err != nil {
			return err
		}
		return encode(cmd, rankOutput{TargetID: id, Results: results, Count: len(results)})
	}

	runner := batch.NewRunner(batch.Config{
		Concurrency: cmd.Int(concurrencyFlag.Name),
		Logger:      slog.Default(),
	}, nil)
	report, runErr := runner.Rank(ctx, recs, recs, opts)
	if report == nil {
		return runErr
	}
	if err := encode(cmd, report); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("ranking interrupted: %w", runErr)
	}
	return nil
}

// splitTarget returns the record with id and every other record.
func splitTarget(recs []record.Record, id string) (record.Record, []record.Record, error) {
	var (
		target     record.Record
		found      bool
		candidates = make([]record.Record, 0, len(recs))
	)
	for _, r := range recs {
		if r.ID == id && !found {
			target, found = r, true
			continue
		}
		candidates = append(candidates, r)
	}
	if !found {
		return record.Record{}, nil, fmt.Errorf("target %q not found in input", id)
	}
	return target, candidates, nil
}
