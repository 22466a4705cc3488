// Package orchestrator sequences the three pipeline stages and owns
// run-level persistence: whatever happens mid-run, the shared memory
// and the event log are written to the output directory exactly once.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/lucasnoah/tracefix/internal/db"
	"github.com/lucasnoah/tracefix/internal/eventlog"
	"github.com/lucasnoah/tracefix/internal/memory"
	"github.com/lucasnoah/tracefix/internal/stage"
)

// Persisted document names in the output directory.
const (
	MemoryFile  = "shared_memory.json"
	HistoryFile = "message_history.json"
)

// RunOpts are the per-run inputs.
type RunOpts struct {
	TracePath    string
	CodebasePath string
	OutputDir    string
}

// Result is the pipeline outcome.
type Result struct {
	Success    bool
	Statuses   map[string]stage.Status
	Strategies map[string]string
	Err        error
}

// Orchestrator runs the stage sequence.
type Orchestrator struct {
	Memory   *memory.Memory
	Log      *eventlog.Logger
	Runner   *stage.Runner
	Stages   []stage.Definition
	DB       *db.DB // optional mirror; failures are logged, never fatal
	Progress io.Writer
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.Progress != nil {
		fmt.Fprintf(o.Progress, format+"\n", args...)
	}
}

// Run executes every stage in order. A stage error aborts the remaining
// stages but persistence still happens; degraded stages do not abort.
func (o *Orchestrator) Run(ctx context.Context, opts RunOpts) *Result {
	res := &Result{
		Success:    true,
		Statuses:   map[string]stage.Status{},
		Strategies: map[string]string{},
	}
	for _, def := range o.Stages {
		res.Statuses[def.ID] = stage.StatusNotStarted
	}

	runID := o.Log.SessionID()
	o.logf("tracefix session %s", runID)
	o.logf("  trace:    %s", opts.TracePath)
	o.logf("  codebase: %s", opts.CodebasePath)
	o.logf("  output:   %s", opts.OutputDir)

	o.Log.System("Pipeline started", map[string]interface{}{
		"trace_path":    opts.TracePath,
		"codebase_path": opts.CodebasePath,
		"output_dir":    opts.OutputDir,
	})
	o.mirror(func() error { return o.DB.RecordRunStart(runID, opts.TracePath, opts.OutputDir) })

	defer func() {
		o.Log.System("Pipeline completed", map[string]interface{}{"success": res.Success})
		if err := o.Memory.Save(filepath.Join(opts.OutputDir, MemoryFile)); err != nil {
			o.logf("warning: %v", err)
		}
		if err := o.Log.Save(filepath.Join(opts.OutputDir, HistoryFile)); err != nil {
			o.logf("warning: %v", err)
		}
		o.mirror(func() error { return o.DB.RecordRunEnd(runID, res.Success) })
	}()

	rc := stage.RunContext{
		TracePath:    opts.TracePath,
		CodebasePath: opts.CodebasePath,
		OutputDir:    opts.OutputDir,
	}

	for _, def := range o.Stages {
		def := def
		o.mirror(func() error {
			return o.DB.RecordStageEvent(runID, def.ID, "stage_start", "", "", 0, "")
		})

		sres, err := o.Runner.Run(ctx, def, rc)
		res.Statuses[def.ID] = sres.Status
		res.Strategies[def.ID] = sres.Strategy

		detail := ""
		if err != nil {
			detail = err.Error()
		}
		o.mirror(func() error {
			return o.DB.RecordStageEvent(runID, def.ID, "stage_end", string(sres.Status), sres.Strategy, sres.DurationMs, detail)
		})

		if err != nil {
			o.logf("[%s] aborted: %v", def.ID, err)
			res.Success = false
			res.Err = err
			break
		}
	}

	o.verifyPatch(opts)
	o.printSummary(opts, res)
	return res
}

// mirror runs a DB write when a mirror is attached, logging failures
// instead of propagating them.
func (o *Orchestrator) mirror(fn func() error) {
	if o.DB == nil {
		return
	}
	if err := fn(); err != nil {
		o.logf("warning: event db: %v", err)
	}
}

// verifyPatch checks that the patched file the patch stage reported
// actually exists, and prints a change summary against the original
// when both sides are readable.
func (o *Orchestrator) verifyPatch(opts RunOpts) {
	patch, ok := o.Memory.GetPatch()
	if !ok {
		return
	}

	patchedName := filepath.Base(patch.PatchedFile)
	if patchedName == "" || patchedName == "." {
		return
	}
	patchedPath := filepath.Join(opts.OutputDir, patchedName)
	patched, err := os.ReadFile(patchedPath)
	if err != nil {
		o.logf("warning: patched file %s not found in output dir", patchedName)
		return
	}
	o.logf("patched file verified: %s", patchedPath)

	original, ok := o.readOriginal(opts.CodebasePath, patch.OriginalFile)
	if !ok {
		return
	}
	added, removed := diffCounts(original, string(patched))
	o.logf("change summary: +%d/-%d lines vs %s", added, removed, patch.OriginalFile)
}

// readOriginal resolves the original file the same way the read_file
// tool does: strip the container prefix, then probe app/ and the
// codebase root.
func (o *Orchestrator) readOriginal(codebase, path string) (string, bool) {
	path = strings.TrimPrefix(path, "/usr/srv/app/")
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		candidates = []string{
			filepath.Join(codebase, "app", path),
			filepath.Join(codebase, path),
			path,
		}
	}
	for _, c := range candidates {
		if data, err := os.ReadFile(c); err == nil {
			return string(data), true
		}
	}
	return "", false
}

// diffCounts returns added/removed line counts between two texts.
func diffCounts(a, b string) (added, removed int) {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if n == 0 && d.Text != "" {
			n = 1
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

func truncateForDisplay(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (o *Orchestrator) printSummary(opts RunOpts, res *Result) {
	if o.Progress == nil {
		return
	}
	line := strings.Repeat("=", 60)
	o.logf("\n%s\nPIPELINE SUMMARY\n%s", line, line)

	for _, def := range o.Stages {
		status := res.Statuses[def.ID]
		extra := ""
		if s := res.Strategies[def.ID]; s != "" {
			extra = fmt.Sprintf(" (%s)", s)
		}
		o.logf("%-6s %s%s", def.ID+":", status, extra)
	}

	if rca, ok := o.Memory.RCA(); ok {
		o.logf("\nRoot Cause Analysis:")
		o.logf("  Error:    %s: %s", orUnknown(rca.ErrorType), orUnknown(rca.ErrorMessage))
		o.logf("  Cause:    %s", truncateForDisplay(orUnknown(rca.RootCause), 200))
		o.logf("  Location: %s:%d (%s)", orUnknown(rca.AffectedFile), rca.AffectedLine, orUnknown(rca.AffectedFunction))
	} else {
		o.logf("\nRoot Cause Analysis: Unknown")
	}

	if plan, ok := o.Memory.GetFixPlan(); ok {
		o.logf("\nFix Plan:")
		o.logf("  %s", truncateForDisplay(orUnknown(plan.Description), 200))
		o.logf("  Steps: %d", len(plan.Steps))
	} else {
		o.logf("\nFix Plan: Unknown")
	}

	if patch, ok := o.Memory.GetPatch(); ok {
		o.logf("\nPatch:")
		o.logf("  Original: %s", orUnknown(patch.OriginalFile))
		o.logf("  Patched:  %s", orUnknown(patch.PatchedFile))
		o.logf("  Changes:  %d", len(patch.ChangesMade))
	} else {
		o.logf("\nPatch: Unknown")
	}

	o.logf("\nArtifacts: %s", opts.OutputDir)
	if res.Success {
		o.logf("Result: success")
	} else {
		o.logf("Result: failure (%v)", res.Err)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
