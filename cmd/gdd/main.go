// Command gdd refines a single game concept into a design document without any
// service infrastructure and writes the exports to a local directory.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gdd-orchestrator/internal/config"
	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/export"
	"gdd-orchestrator/internal/llm"
	"gdd-orchestrator/internal/logging"
	"gdd-orchestrator/internal/refinement"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("gdd: %v", err)
	}
}

type options struct {
	concept       string
	conceptFile   string
	outDir        string
	formats       string
	provider      string
	model         string
	maxIterations int
	selection     string
	logLevel      string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("gdd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.concept, "concept", "", "game concept text")
	fs.StringVar(&o.conceptFile, "concept-file", "", "read the concept from a file (- for stdin)")
	fs.StringVar(&o.outDir, "out", "output", "directory the exports are written to")
	fs.StringVar(&o.formats, "formats", "json,md,html", "comma separated export formats (json, md, html, prompt)")
	fs.StringVar(&o.provider, "provider", "", "llm provider override: openai or mock")
	fs.StringVar(&o.model, "model", "", "model override for both roles")
	fs.IntVar(&o.maxIterations, "max-iterations", 0, "maximum refinement iterations override")
	fs.StringVar(&o.selection, "selection", "", "final selection policy override: latest or best_score")
	fs.StringVar(&o.logLevel, "log-level", "", "log level override")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.concept == "" && fs.NArg() > 0 {
		o.concept = strings.Join(fs.Args(), " ")
	}
	return o, nil
}

func readConcept(o options, stdin io.Reader) (string, error) {
	switch {
	case o.concept != "":
		return o.concept, nil
	case o.conceptFile == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case o.conceptFile != "":
		b, err := os.ReadFile(o.conceptFile)
		if err != nil {
			return "", fmt.Errorf("read concept file: %w", err)
		}
		return string(b), nil
	default:
		return "", errors.New("a concept is required (-concept, -concept-file or positional text)")
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := config.LoadForCLI()
	if err != nil {
		return err
	}
	applyOverrides(&cfg, o)

	concept, err := readConcept(o, os.Stdin)
	if err != nil {
		return err
	}
	if err := domain.ValidateConcept(concept, cfg.MaxConceptBytes); err != nil {
		return err
	}
	concept = strings.TrimSpace(concept)

	formats, err := parseFormats(o.formats)
	if err != nil {
		return err
	}

	logger := logging.NewWithWriter(stderr, cfg.LogLevel, "gdd")
	if insight := domain.AnalyzeConcept(concept); !insight.Sufficient() {
		logger.Warn("concept is thin, the document will lean on defaults",
			"missing", insight.Missing, "score", insight.Score)
	}

	client, err := llm.NewClient(cfg.LLMProvider, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	if err != nil {
		return err
	}
	result, err := refinement.Execute(ctx, concept, cfg.Refinement(), client, refinement.WithLogger(logger))
	if err != nil {
		return err
	}

	written, err := writeOutputs(o.outDir, result, formats)
	if err != nil {
		return err
	}
	printSummary(stdout, result, written)
	return nil
}

func applyOverrides(cfg *config.Config, o options) {
	if o.provider != "" {
		cfg.LLMProvider = strings.ToLower(o.provider)
	}
	if o.model != "" {
		cfg.OpenAIModel = o.model
		cfg.Loop.ActorModel = o.model
		cfg.Loop.CriticModel = o.model
	}
	if o.maxIterations > 0 {
		cfg.Loop.MaxIterations = o.maxIterations
	}
	if o.selection != "" {
		cfg.Loop.FinalSelection = domain.Selection(o.selection)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
}

func parseFormats(s string) ([]export.Format, error) {
	var out []export.Format
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := export.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one export format is required")
	}
	return out, nil
}

func writeOutputs(dir string, result domain.RefinementResult, formats []export.Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	written := make([]string, 0, len(formats)+1)
	for _, f := range formats {
		body, err := export.Render(f, result.FinalGDD)
		if err != nil {
			return written, fmt.Errorf("render %s: %w", f, err)
		}
		path := filepath.Join(dir, f.Filename())
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	full, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return written, fmt.Errorf("marshal result: %w", err)
	}
	path := filepath.Join(dir, "result.json")
	if err := os.WriteFile(path, full, 0o644); err != nil {
		return written, fmt.Errorf("write %s: %w", path, err)
	}
	return append(written, path), nil
}

func printSummary(w io.Writer, result domain.RefinementResult, written []string) {
	fmt.Fprintln(w, result.FinalGDD.Summary())
	fmt.Fprintf(w, "termination: %s (success=%t) after %d iteration(s) in %dms\n",
		result.TerminationReason, result.Success, result.TotalIterations, result.DurationMS)
	if score, ok := result.FinalScore(); ok {
		fmt.Fprintf(w, "final score: %.2f\n", score)
	}
	fmt.Fprintf(w, "tokens: %d in / %d out\n", result.Usage.InputTokens, result.Usage.OutputTokens)
	for _, path := range written {
		fmt.Fprintf(w, "wrote %s\n", path)
	}
}
