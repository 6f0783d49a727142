// Command assess runs one screening from the command line and writes the
// PDF report.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/adapters"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/config"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	cfg := config.Load()

	return &cli.App{
		Name:      "assess",
		Usage:     "combine a face image and AQ-10 answers into a screening report",
		UsageText: `assess --image face.jpg --answers "3,0,1,1,2,0,3,1,0,2" [--image-prob 0.7] [--out report.pdf]`,
		Writer:    out,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:     "image",
				Usage:    "face image (JPEG or PNG)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "answers",
				Usage:    "ten comma-separated answers for Q1..Q10, as 0-3 or labels such as \"Slightly Agree\"",
				Required: true,
			},
			&cli.Float64Flag{
				Name:  "image-prob",
				Usage: "use this image probability instead of calling the model",
			},
			&cli.PathFlag{
				Name:  "out",
				Usage: "where to write the PDF report",
				Value: report.Filename,
			},
			&cli.PathFlag{
				Name:    "scoring-config",
				Usage:   "JSON file overriding weights and thresholds",
				EnvVars: []string{"SCORING_CONFIG"},
				Value:   cfg.ScoringConfigPath,
			},
			&cli.StringFlag{
				Name:    "inference-url",
				Usage:   "TensorFlow Serving REST endpoint",
				EnvVars: []string{"INFERENCE_URL"},
				Value:   cfg.InferenceURL,
			},
			&cli.StringFlag{
				Name:    "model-name",
				EnvVars: []string{"MODEL_NAME"},
				Value:   cfg.ModelName,
			},
			&cli.PathFlag{
				Name:    "model-path",
				Usage:   "local model artifact, downloaded when missing",
				EnvVars: []string{"MODEL_PATH"},
				Value:   cfg.ModelPath,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log progress to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			level := slog.LevelWarn
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			return run(c, cfg, out)
		},
	}
}

func run(c *cli.Context, cfg config.Config, out io.Writer) error {
	ctx := c.Context

	rs, err := analysis.ParseResponseList(c.String("answers"))
	if err != nil {
		return err
	}
	img, err := os.ReadFile(c.Path("image"))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	scoring, err := analysis.NewConfigStore(c.Path("scoring-config")).Load()
	if err != nil {
		return err
	}
	scorer, err := analysis.NewScorer(scoring)
	if err != nil {
		return err
	}

	classifier, err := newClassifier(c, cfg)
	if err != nil {
		return err
	}

	a, err := analysis.NewAssessor(scorer, classifier).Assess(ctx, img, rs)
	if err != nil {
		return err
	}

	doc, err := report.NewRenderer().Render(ctx, report.Input{
		Assessment: a,
		Source:     report.LoadSourceImage(img),
		Thresholds: scoring.Combined,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.Path("out"), doc.Bytes, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	printSummary(out, a)
	fmt.Fprintf(out, "Report written to %s (%d pages)\n", c.Path("out"), doc.Pages)
	return nil
}

// newClassifier skips the model entirely when --image-prob is given.
func newClassifier(c *cli.Context, cfg config.Config) (analysis.ImageClassifier, error) {
	if c.IsSet("image-prob") {
		return adapters.StaticClassifier{Probability: c.Float64("image-prob")}, nil
	}

	model, err := adapters.NewArtifactStore(adapters.ArtifactConfig{
		URL:    cfg.ModelURL,
		Path:   c.Path("model-path"),
		SHA256: cfg.ModelSHA256,
	}, nil).Ensure(c.Context)
	if err != nil {
		return nil, err
	}

	return adapters.NewTFServingClassifier(adapters.TFServingConfig{
		BaseURL:   c.String("inference-url"),
		ModelName: c.String("model-name"),
		Timeout:   cfg.InferenceTimeout,
	}, model, nil), nil
}

func printSummary(out io.Writer, a *analysis.Assessment) {
	fmt.Fprintf(out, "Image Risk: %.1f%%\n", a.Combined.ImageProb*100)
	fmt.Fprintf(out, "AQ-10 Score: %d/10 -> %s\n", a.AQ10.Score, a.AQ10.Interpretation)
	fmt.Fprintf(out, "Combined Risk: %.1f%%\n", a.Combined.CombinedProb*100)
	fmt.Fprintf(out, "Recommendation: %s\n", a.Combined.RecommendationText)
}
