package stage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/lucasnoah/tracefix/internal/extract"
	"github.com/lucasnoah/tracefix/internal/memory"
	"github.com/lucasnoah/tracefix/internal/prompt"
	"github.com/lucasnoah/tracefix/internal/tools"
)

const rcaSystemPrompt = `You are an expert software debugger for Python/FastAPI/SQLAlchemy services.

Goal: deliver a concise, evidence-backed RCA for the provided error trace.

Use tools effectively:
- Start with ` + "`parse_error_trace`" + ` to extract error type, message, and primary location.
- Use ` + "`read_file`" + ` to inspect the implicated source code and confirm the mistake.
- Use ` + "`list_directory`" + ` only if you need to locate files.

Always:
- Verify hypotheses in the actual code.
- Distinguish the symptom (exception) from the true root cause.
- Ground conclusions in specific code evidence (file/line/function).

Return one JSON object with: error_type, error_message, root_cause, affected_file, affected_line, affected_function, evidence (list of short bullets).`

const fixSystemPrompt = `You are a senior software architect for safe, minimal code fixes.

Goal: turn the RCA into a clear, actionable fix plan.

Principles:
- Minimal change surface; avoid refactors.
- Safety first: edge cases, side effects, backward compatibility.
- Clear, numbered steps that can be executed exactly.
- Testing implications included.

Output: one JSON object with description, steps[], safety_considerations[], expected_outcome.`

const patchSystemPrompt = `You are an expert code-generation specialist focused on precise, minimal patches.

Goal: produce a fixed source file based on the RCA and fix plan, with minimal, well-scoped edits.

Recommended flow:
- Use ` + "`read_file`" + ` to load the original file before changing anything.
- Apply the smallest change set that fully addresses the root cause and fix plan.
- Use ` + "`write_file`" + ` to save the full corrected file (e.g., ` + "`fixed_<basename>.py`" + ` or the provided hint).
- Optionally use ` + "`run_command`" + ` for light validation (e.g., grep, format, quick tests) if needed.

Guidelines:
- Keep formatting/comments intact; don't refactor unrelated code.
- Be explicit about what changed and where.
- Return patch metadata as a JSON object: original_file, patched_file, changes_made (list), lines_modified (list).`

// contextJSON renders a memory record for prompt embedding, or the
// given marker when absent.
func contextJSON(v interface{}, ok bool, marker string) string {
	if !ok {
		return marker
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return marker
	}
	return string(data)
}

// RCA is the diagnosis stage definition.
func RCA() Definition {
	return Definition{
		ID:           "rca",
		Agent:        "rca_agent",
		TaskName:     "Root Cause Analysis",
		SystemPrompt: rcaSystemPrompt,
		Template:     "rca.md",
		Tools: func(cfg tools.Config) []tools.Tool {
			return []tools.Tool{
				tools.NewParseTrace(cfg),
				tools.NewReadFile(cfg),
				tools.NewListDirectory(cfg),
			}
		},
		Vars: func(_ *memory.Memory, rc RunContext) prompt.Vars {
			return prompt.Vars{"trace_path": rc.TracePath}
		},
		Recover: func(m *memory.Memory, output string) (string, []string, string, error) {
			rec, strategy, err := extract.RCA(output)
			if err != nil {
				return "", nil, strategy, err
			}
			m.SetRCA(*rec)
			keys := []string{"error_type", "error_message", "root_cause", "affected_file", "affected_line", "affected_function", "evidence"}
			return "rca", keys, strategy, nil
		},
	}
}

// Fix is the planning stage definition. It runs without tools; its
// entire input is the RCA context.
func Fix() Definition {
	return Definition{
		ID:           "fix",
		Agent:        "fix_agent",
		TaskName:     "Generate Fix Plan",
		SystemPrompt: fixSystemPrompt,
		Template:     "fix.md",
		Tools: func(tools.Config) []tools.Tool {
			return nil
		},
		Vars: func(m *memory.Memory, _ RunContext) prompt.Vars {
			rca, ok := m.RCA()
			return prompt.Vars{
				"rca_context": contextJSON(rca, ok, "No RCA data available"),
			}
		},
		Recover: func(m *memory.Memory, output string) (string, []string, string, error) {
			rec, strategy, err := extract.Fix(output)
			if err != nil {
				return "", nil, strategy, err
			}
			m.SetFixPlan(*rec)
			keys := []string{"description", "steps", "safety_considerations", "expected_outcome"}
			return "fix_plan", keys, strategy, nil
		},
	}
}

// Patch is the patch-generation stage definition.
func Patch() Definition {
	return Definition{
		ID:           "patch",
		Agent:        "patch_agent",
		TaskName:     "Generate Code Patch",
		SystemPrompt: patchSystemPrompt,
		Template:     "patch.md",
		Tools: func(cfg tools.Config) []tools.Tool {
			return []tools.Tool{
				tools.NewReadFile(cfg),
				tools.NewWriteFile(cfg),
				tools.NewRunCommand(cfg),
			}
		},
		Vars: func(m *memory.Memory, _ RunContext) prompt.Vars {
			rca, rcaOK := m.RCA()
			plan, planOK := m.GetFixPlan()

			affectedFile := "unknown"
			affectedLine := ""
			if rcaOK {
				if rca.AffectedFile != "" {
					affectedFile = rca.AffectedFile
				}
				if rca.AffectedLine > 0 {
					affectedLine = fmt.Sprintf("%d", rca.AffectedLine)
				}
			}

			return prompt.Vars{
				"rca_context":   contextJSON(rca, rcaOK, "No RCA data available"),
				"fix_context":   contextJSON(plan, planOK, "No fix plan available"),
				"affected_file": affectedFile,
				"affected_line": affectedLine,
				"patched_name":  PatchedName(affectedFile),
			}
		},
		Recover: func(m *memory.Memory, output string) (string, []string, string, error) {
			rec, strategy, err := extract.Patch(output)
			if err != nil {
				return "", nil, strategy, err
			}
			m.SetPatch(*rec)
			keys := []string{"original_file", "patched_file", "changes_made", "lines_modified", "patch_content"}
			return "patch_metadata", keys, strategy, nil
		},
	}
}

// PatchedName computes the output filename hint for a patched file.
func PatchedName(affectedFile string) string {
	if affectedFile == "" || affectedFile == "unknown" {
		return "fixed_patch.py"
	}
	return "fixed_" + filepath.Base(affectedFile)
}

// All returns the pipeline's stages in execution order.
func All() []Definition {
	return []Definition{RCA(), Fix(), Patch()}
}
