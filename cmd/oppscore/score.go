package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/onnwee/oppscore/internal/batch"
	"github.com/onnwee/oppscore/internal/insight"
	"github.com/onnwee/oppscore/internal/scoring"
)

var (
	modelsFlag = &cli.StringFlag{
		Name:    "models",
		Usage:   "YAML file with score models and priorities",
		Sources: cli.EnvVars("SCORE_MODELS_PATH"),
	}

	modelFlag = &cli.StringFlag{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "Score model id",
		Value:   scoring.DefaultModelID,
	}

	insightURLFlag = &cli.StringFlag{
		Name:    "insight-url",
		Usage:   "Insight service base URL; delegated components are unavailable without it",
		Sources: cli.EnvVars("INSIGHT_URL"),
	}

	insightKeyFlag = &cli.StringFlag{
		Name:    "insight-api-key",
		Usage:   "Insight service API key",
		Sources: cli.EnvVars("INSIGHT_API_KEY"),
	}

	providerTimeoutFlag = &cli.DurationFlag{
		Name:    "provider-timeout",
		Usage:   "Timeout for each insight request",
		Value:   scoring.DefaultProviderTimeout,
		Sources: cli.EnvVars("PROVIDER_TIMEOUT"),
	}

	concurrencyFlag = &cli.IntFlag{
		Name:    "concurrency",
		Usage:   "Records scored in parallel",
		Value:   batch.DefaultConcurrency,
		Sources: cli.EnvVars("BATCH_CONCURRENCY"),
	}

	runTimeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Deadline for the whole run",
		Value: batch.DefaultTimeout,
	}

	scoreCmd = &cli.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Score every record of the input under one model",
		Action:  cmdScore,
		Flags: []cli.Flag{
			inputFlag,
			modelsFlag,
			modelFlag,
			insightURLFlag,
			insightKeyFlag,
			providerTimeoutFlag,
			concurrencyFlag,
			runTimeoutFlag,
		},
	}
)

// scoredRecord is a score result with its human-readable reasons.
type scoredRecord struct {
	scoring.ScoreResult `yaml:",inline"`
	Reasons             []string `json:"reasons" yaml:"reasons"`
}

type scoreOutput struct {
	RunID           string          `json:"run_id" yaml:"run_id"`
	ModelID         string          `json:"model_id" yaml:"model_id"`
	Results         []scoredRecord  `json:"results" yaml:"results"`
	Failed          []batch.Failure `json:"failed" yaml:"failed"`
	Canceled        bool            `json:"canceled,omitempty" yaml:"canceled,omitempty"`
	DurationSeconds float64         `json:"duration_seconds" yaml:"duration_seconds"`
}

func cmdScore(ctx context.Context, cmd *cli.Command) error {
	logger := slog.Default()

	recs, err := readRecords(cmd, cmd.String(inputFlag.Name))
	if err != nil {
		return err
	}

	registry, err := scoring.LoadRegistry(cmd.String(modelsFlag.Name), logger)
	if err != nil {
		return err
	}
	model, err := registry.Model(cmd.String(modelFlag.Name))
	if err != nil {
		return err
	}

	var service scoring.InsightService
	if u := cmd.String(insightURLFlag.Name); u != "" {
		client, err := insight.NewClient(insight.Config{
			BaseURL: u,
			APIKey:  cmd.String(insightKeyFlag.Name),
			Timeout: cmd.Duration(providerTimeoutFlag.Name),
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		service = client
	}

	engine := scoring.NewEngine(scoring.EngineConfig{
		Providers: scoring.DefaultProviders(registry.Priorities(), service, scoring.DelegatedConfig{
			Timeout: cmd.Duration(providerTimeoutFlag.Name),
			Logger:  logger,
		}),
		Logger: logger,
	})
	runner := batch.NewRunner(batch.Config{
		Concurrency: cmd.Int(concurrencyFlag.Name),
		Timeout:     cmd.Duration(runTimeoutFlag.Name),
		Logger:      logger,
	}, engine)

	report, runErr := runner.Score(ctx, recs, model)
	if report == nil {
		return runErr
	}

	out := scoreOutput{
		RunID:           report.RunID,
		ModelID:         report.ModelID,
		Results:         make([]scoredRecord, 0, len(report.Results)),
		Failed:          report.Failed,
		Canceled:        report.Canceled,
		DurationSeconds: report.DurationSeconds,
	}
	for _, res := range report.Results {
		out.Results = append(out.Results, scoredRecord{
			ScoreResult: *res,
			Reasons:     scoring.ExplainScore(res),
		})
	}
	if err := encode(cmd, out); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("scoring interrupted: %w", runErr)
	}
	return nil
}
