package prompt

// builtinTemplates maps template filename to content.
var builtinTemplates = map[string]string{
	"rca.md":   rcaTemplate,
	"fix.md":   fixTemplate,
	"patch.md": patchTemplate,
}

const rcaTemplate = `Perform an RCA of the error trace at: {{trace_path}}

Suggested flow:
1) Call ` + "`parse_error_trace`" + ` to get primary file/line/function.
2) Use ` + "`read_file`" + ` on that file to inspect the code around the line.
3) If needed, ` + "`list_directory`" + ` to find related files.
4) Produce one JSON object with fields: error_type, error_message, root_cause, affected_file, affected_line, affected_function, evidence (list).
`

const fixTemplate = `Based on the RCA analysis, generate a detailed fix plan.

RCA input:
{{rca_context}}

Your task:
- Reflect the RCA's root cause.
- Propose the smallest viable change set to fix it.
- Include safety/edge-case considerations and testing notes.
- Return one JSON object: description, steps[], safety_considerations[], expected_outcome.
`

const patchTemplate = `Generate a patched version of the buggy file based on the following analysis.

## RCA Analysis:
{{rca_context}}

## Fix Plan:
{{fix_context}}

Your task:
- Read the original source file: {{affected_file}} (start with ` + "`read_file`" + `).
{{#if affected_line}}
- Focus on the bug area (around line {{affected_line}}) and apply the planned fix.
{{/if}}
- Write the full corrected file using ` + "`write_file`" + `. Prefer ` + "`{{patched_name}}`" + ` unless the plan specifies another name.
- Provide patch metadata JSON with original_file, patched_file, changes_made, lines_modified.

Write the ENTIRE corrected file content, not just a diff.
`
