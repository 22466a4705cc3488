package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/tracefix/internal/agent"
	"github.com/lucasnoah/tracefix/internal/config"
	"github.com/lucasnoah/tracefix/internal/db"
	"github.com/lucasnoah/tracefix/internal/eventlog"
	"github.com/lucasnoah/tracefix/internal/llm"
	"github.com/lucasnoah/tracefix/internal/memory"
	"github.com/lucasnoah/tracefix/internal/orchestrator"
	"github.com/lucasnoah/tracefix/internal/stage"
	"github.com/lucasnoah/tracefix/internal/tools"
)

var (
	runTrace    string
	runCodebase string
	runOutput   string
	runProvider string
	runModel    string
	runConfig   string
	runNoDB     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full rca → fix → patch pipeline",
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runTrace, "trace", "", "path to the APM error trace JSON")
	runCmd.Flags().StringVar(&runCodebase, "codebase", "", "path to the codebase under diagnosis")
	runCmd.Flags().StringVar(&runOutput, "output", "", "directory for patched files and run artifacts")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "LLM provider: gemini, groq, or auto")
	runCmd.Flags().StringVar(&runModel, "model", "", "model override for the selected provider")
	runCmd.Flags().StringVar(&runConfig, "config", "", "path to a tracefix.yaml config file")
	runCmd.Flags().BoolVar(&runNoDB, "no-db", false, "skip the SQLite analytics mirror")
}

func loadRunConfig() (*config.Config, error) {
	if runConfig != "" {
		return config.Load(runConfig)
	}
	return config.LoadDefault()
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config: %s\n", e.Error())
		}
		return fmt.Errorf("invalid configuration (%d problems)", len(errs))
	}

	trace := firstNonEmpty(runTrace, cfg.Paths.Trace)
	codebase := firstNonEmpty(runCodebase, cfg.Paths.Codebase)
	output := firstNonEmpty(runOutput, cfg.Paths.Output)

	if trace == "" {
		return fmt.Errorf("no trace file given (use --trace or paths.trace in config)")
	}
	if _, err := os.Stat(trace); err != nil {
		return fmt.Errorf("trace file: %w", err)
	}
	if codebase == "" {
		return fmt.Errorf("no codebase path given (use --codebase or paths.codebase in config)")
	}
	if _, err := os.Stat(codebase); err != nil {
		return fmt.Errorf("codebase path: %w", err)
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	provider, err := llm.FromEnv(firstNonEmpty(runProvider, cfg.Provider.Name), firstNonEmpty(runModel, cfg.Provider.Model))
	if err != nil {
		return err
	}
	fmt.Printf("provider: %s (%s)\n", provider.Name(), provider.Model())

	mem := memory.New()
	log := eventlog.New()
	exec := agent.New(provider, log, os.Stdout)
	exec.SetMaxIterations(cfg.Limits.MaxIterations)

	overrides := map[string]*agent.Executor{}
	for stageID, model := range cfg.Provider.StageModels {
		p, err := llm.FromEnv(firstNonEmpty(runProvider, cfg.Provider.Name), model)
		if err != nil {
			return fmt.Errorf("stage %s model override: %w", stageID, err)
		}
		e := agent.New(p, log, os.Stdout)
		e.SetMaxIterations(cfg.Limits.MaxIterations)
		overrides[stageID] = e
	}

	runner := &stage.Runner{
		Memory: mem,
		Log:    log,
		Exec:   exec,
		ToolConfig: tools.Config{
			CodebasePath:      codebase,
			OutputDir:         output,
			Workspace:         codebase,
			TracePath:         trace,
			MaxFileBytes:      cfg.Limits.MaxFileBytes,
			AllowedExtensions: cfg.Limits.AllowedExtensions,
			CommandTimeout:    cfg.CommandTimeout(),
		},
		Progress:      os.Stdout,
		ExecOverrides: overrides,
	}

	o := &orchestrator.Orchestrator{
		Memory:   mem,
		Log:      log,
		Runner:   runner,
		Stages:   stage.All(),
		DB:       openMirror(),
		Progress: os.Stdout,
	}
	if o.DB != nil {
		defer o.DB.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := o.Run(ctx, orchestrator.RunOpts{
		TracePath:    trace,
		CodebasePath: codebase,
		OutputDir:    output,
	})

	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "interrupted")
		os.Exit(130)
	}
	if !res.Success {
		return fmt.Errorf("pipeline failed: %w", res.Err)
	}
	return nil
}

// openMirror opens the analytics mirror; any failure just disables it.
func openMirror() *db.DB {
	if runNoDB {
		return nil
	}
	path, err := db.DefaultDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: event db disabled: %v\n", err)
		return nil
	}
	d, err := db.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: event db disabled: %v\n", err)
		return nil
	}
	if err := d.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: event db disabled: %v\n", err)
		d.Close()
		return nil
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
