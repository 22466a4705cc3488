package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasnoah/tracefix/internal/agent"
	"github.com/lucasnoah/tracefix/internal/db"
	"github.com/lucasnoah/tracefix/internal/eventlog"
	"github.com/lucasnoah/tracefix/internal/llm"
	"github.com/lucasnoah/tracefix/internal/memory"
	"github.com/lucasnoah/tracefix/internal/stage"
	"github.com/lucasnoah/tracefix/internal/tools"
)

// sequenceProvider returns one canned reply per Chat call.
type sequenceProvider struct {
	replies []*llm.Response
	errs    []error
	calls   int
}

func (p *sequenceProvider) Name() string  { return "seq" }
func (p *sequenceProvider) Model() string { return "seq-model" }

func (p *sequenceProvider) Chat(ctx context.Context, messages []llm.Message, defs []llm.ToolDef) (*llm.Response, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return p.replies[i], nil
}

const (
	rcaReply   = `{"error_type": "KeyError", "error_message": "'user_id'", "root_cause": "missing guard", "affected_file": "services/user.py", "affected_line": 42, "affected_function": "get_user", "evidence": ["frame"]}`
	fixReply   = `{"description": "guard the lookup", "steps": ["open file", "add check"], "safety_considerations": ["none"], "expected_outcome": "no KeyError"}`
	patchReply = `{"original_file": "services/user.py", "patched_file": "fixed_user.py", "changes_made": ["added guard"], "lines_modified": ["42"], "patch_content": ""}`
)

func newOrchestrator(p llm.Provider, outputDir string, mirror *db.DB) *Orchestrator {
	mem := memory.New()
	log := eventlog.NewWithSession("sess0001")
	runner := &stage.Runner{
		Memory:     mem,
		Log:        log,
		Exec:       agent.New(p, log, nil),
		ToolConfig: tools.Config{OutputDir: outputDir},
	}
	return &Orchestrator{
		Memory: mem,
		Log:    log,
		Runner: runner,
		Stages: stage.All(),
		DB:     mirror,
	}
}

func TestRunAllStagesSucceed(t *testing.T) {
	outDir := t.TempDir()
	p := &sequenceProvider{replies: []*llm.Response{
		{Content: rcaReply}, {Content: fixReply}, {Content: patchReply},
	}}
	o := newOrchestrator(p, outDir, nil)

	res := o.Run(context.Background(), RunOpts{TracePath: "t.json", CodebasePath: ".", OutputDir: outDir})
	if !res.Success || res.Err != nil {
		t.Fatalf("result = %+v", res)
	}
	for _, id := range []string{"rca", "fix", "patch"} {
		if res.Statuses[id] != stage.StatusSucceeded {
			t.Errorf("%s status = %s", id, res.Statuses[id])
		}
	}

	if _, ok := o.Memory.RCA(); !ok {
		t.Error("rca record missing")
	}
	if _, ok := o.Memory.GetFixPlan(); !ok {
		t.Error("fix plan missing")
	}
	if _, ok := o.Memory.GetPatch(); !ok {
		t.Error("patch metadata missing")
	}

	for _, name := range []string{MemoryFile, HistoryFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not persisted: %v", name, err)
		}
	}

	events := o.Log.Events()
	first, last := events[0], events[len(events)-1]
	if first.Type != eventlog.TypeSystem || !strings.Contains(first.Data["message"].(string), "started") {
		t.Errorf("first event = %+v", first)
	}
	if last.Type != eventlog.TypeSystem || !strings.Contains(last.Data["message"].(string), "completed") {
		t.Errorf("last event = %+v", last)
	}
}

func TestRunStageErrorAbortsButPersists(t *testing.T) {
	outDir := t.TempDir()
	p := &sequenceProvider{
		replies: []*llm.Response{{Content: rcaReply}, nil},
		errs:    []error{nil, errors.New("provider down")},
	}
	o := newOrchestrator(p, outDir, nil)

	res := o.Run(context.Background(), RunOpts{TracePath: "t.json", CodebasePath: ".", OutputDir: outDir})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Statuses["rca"] != stage.StatusSucceeded {
		t.Errorf("rca = %s", res.Statuses["rca"])
	}
	if res.Statuses["fix"] != stage.StatusFailed {
		t.Errorf("fix = %s", res.Statuses["fix"])
	}
	if res.Statuses["patch"] != stage.StatusNotStarted {
		t.Errorf("patch = %s, want not_started", res.Statuses["patch"])
	}

	// Partial state still lands on disk.
	if _, err := os.Stat(filepath.Join(outDir, MemoryFile)); err != nil {
		t.Errorf("memory not persisted after failure: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, HistoryFile)); err != nil {
		t.Errorf("history not persisted after failure: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, MemoryFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"error_type": "KeyError"`) {
		t.Error("persisted memory missing the rca record from before the failure")
	}
}

func TestRunDegradedStageContinues(t *testing.T) {
	outDir := t.TempDir()
	p := &sequenceProvider{replies: []*llm.Response{
		{Content: "nothing structured here"},
		{Content: fixReply},
		{Content: patchReply},
	}}
	o := newOrchestrator(p, outDir, nil)

	res := o.Run(context.Background(), RunOpts{TracePath: "t.json", CodebasePath: ".", OutputDir: outDir})
	if !res.Success {
		t.Fatalf("degraded stage must not fail the run: %+v", res)
	}
	if res.Statuses["rca"] != stage.StatusDegraded {
		t.Errorf("rca = %s", res.Statuses["rca"])
	}
	if res.Statuses["fix"] != stage.StatusSucceeded || res.Statuses["patch"] != stage.StatusSucceeded {
		t.Errorf("downstream statuses = %+v", res.Statuses)
	}
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want 3 (all stages ran)", p.calls)
	}
}

func TestRunMirrorsToDB(t *testing.T) {
	outDir := t.TempDir()
	d, err := db.Open(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if err := d.Migrate(); err != nil {
		t.Fatal(err)
	}

	p := &sequenceProvider{replies: []*llm.Response{
		{Content: rcaReply}, {Content: fixReply}, {Content: patchReply},
	}}
	o := newOrchestrator(p, outDir, d)

	o.Run(context.Background(), RunOpts{TracePath: "t.json", CodebasePath: ".", OutputDir: outDir})

	runs, err := d.RecentRuns(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != "sess0001" || !runs[0].Success.Bool {
		t.Errorf("runs = %+v", runs)
	}

	events, err := d.StageEvents("sess0001")
	if err != nil {
		t.Fatal(err)
	}
	// Three stages, start+end each.
	if len(events) != 6 {
		t.Fatalf("stage events = %d, want 6", len(events))
	}
	if events[1].Event != "stage_end" || events[1].Status.String != "succeeded" {
		t.Errorf("rca end = %+v", events[1])
	}
}

func TestDiffCounts(t *testing.T) {
	a := "one\ntwo\nthree\n"
	b := "one\ntwo changed\nthree\nfour\n"
	added, removed := diffCounts(a, b)
	if added != 2 || removed != 1 {
		t.Errorf("diff = +%d/-%d, want +2/-1", added, removed)
	}
}
