// Package extract recovers structured records from free-text model
// output. Recovery walks an ordered list of named strategies per record
// shape: a tight regex anchored on the shape's signature key, a looser
// regex anchored on its list-bearing key, a brace-counting scan for
// pretty-printed objects the regexes mangle, and (for the diagnosis and
// fix-plan shapes only) a degraded line scan that salvages a minimal
// record from prose.
//
// Candidate objects are gated against a JSON schema before construction
// so a matched span with the wrong field types never half-populates a
// record. Extraction never panics; every failure surfaces as a nil
// record with an error describing the reason.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/lucasnoah/tracefix/internal/memory"
)

// Strategy names, in the order they are attempted.
const (
	StrategyTight     = "tight_regex"
	StrategyLoose     = "loose_regex"
	StrategyBraceScan = "brace_scan"
	StrategyLineScan  = "line_scan"
)

// shape describes how to recover one record kind.
type shape struct {
	anchor string // signature key the tight regex locks onto
	tight  *regexp.Regexp
	loose  *regexp.Regexp
	schema *gojsonschema.Schema
}

func mustSchema(doc string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(err)
	}
	return s
}

// tightRe matches a flat object containing the anchor key.
func tightRe(anchor string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)\{[^{}]*"` + anchor + `"[^{}]*\}`)
}

// looseRe matches the shortest span that contains the list key and
// closes its array, even across nested braces.
func looseRe(listKey string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)\{.*?"` + listKey + `".*?\].*?\}`)
}

var (
	rcaShape = shape{
		anchor: "error_type",
		tight:  tightRe("error_type"),
		loose:  looseRe("evidence"),
		schema: mustSchema(`{
			"type": "object",
			"properties": {
				"error_type":        {"type": "string"},
				"error_message":     {"type": "string"},
				"root_cause":        {"type": "string"},
				"affected_file":     {"type": "string"},
				"affected_line":     {"type": ["integer", "number", "string"]},
				"affected_function": {"type": "string"},
				"evidence":          {"type": "array"}
			}
		}`),
	}

	fixShape = shape{
		anchor: "description",
		tight:  tightRe("description"),
		loose:  looseRe("steps"),
		schema: mustSchema(`{
			"type": "object",
			"properties": {
				"description":           {"type": "string"},
				"steps":                 {"type": "array"},
				"safety_considerations": {"type": "array"},
				"expected_outcome":      {"type": "string"}
			}
		}`),
	}

	patchShape = shape{
		anchor: "original_file",
		tight:  tightRe("original_file"),
		loose:  looseRe("changes_made"),
		schema: mustSchema(`{
			"type": "object",
			"properties": {
				"original_file":  {"type": "string"},
				"patched_file":   {"type": "string"},
				"changes_made":   {"type": "array"},
				"lines_modified": {"type": "array"},
				"patch_content":  {"type": "string"}
			}
		}`),
	}
)

// recoverObject finds and decodes a candidate object for the shape.
// A non-nil error means a span was found but rejected (bad JSON that the
// brace scan could not repair, or a schema violation).
func recoverObject(text string, sh shape) (map[string]interface{}, string, error) {
	var candidate, strategy string
	if m := sh.tight.FindString(text); m != "" {
		candidate, strategy = m, StrategyTight
	} else if m := sh.loose.FindString(text); m != "" {
		candidate, strategy = m, StrategyLoose
	} else {
		return nil, "", nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		// Pretty-printed output defeats the regexes; rescan by
		// counting braces from the anchor key.
		scanned, ok := braceScan(text, sh.anchor)
		if !ok {
			return nil, strategy, fmt.Errorf("no valid JSON object for %q: %w", sh.anchor, err)
		}
		raw = nil
		if err := json.Unmarshal([]byte(scanned), &raw); err != nil {
			return nil, StrategyBraceScan, fmt.Errorf("brace-scanned span for %q is not valid JSON: %w", sh.anchor, err)
		}
		strategy = StrategyBraceScan
	}

	res, err := sh.schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, strategy, fmt.Errorf("schema check for %q: %w", sh.anchor, err)
	}
	if !res.Valid() {
		return nil, strategy, fmt.Errorf("candidate object for %q rejected: %s", sh.anchor, res.Errors()[0])
	}
	return raw, strategy, nil
}

// braceScan finds the object starting at `{"<anchor>"` (or its 4- and
// 2-space pretty-printed variants) and returns the span where the brace
// count returns to zero. Braces inside string values are not special-cased;
// the shapes recovered here do not embed code in nested objects.
func braceScan(text, anchor string) (string, bool) {
	starts := []string{
		`{"` + anchor + `"`,
		"{\n    \"" + anchor + "\"",
		"{\n  \"" + anchor + "\"",
	}
	start := -1
	for _, s := range starts {
		if i := strings.Index(text, s); i != -1 {
			start = i
			break
		}
	}
	if start == -1 {
		return "", false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// asString coerces a decoded JSON value to a string, defaulting to "".
func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// asStringList coerces a decoded JSON array to strings, defaulting to
// an empty slice when absent.
func asStringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, asString(it))
	}
	return out
}

// coerceLine converts the affected_line value to an int. Absent values
// default to 0; a string like "42" coerces; anything non-coercible is an
// error, which aborts the extraction rather than silently recording 0.
func coerceLine(v interface{}) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("affected_line %q is not an integer", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("affected_line has unsupported type %T", v)
	}
}

var (
	errTypeRe = regexp.MustCompile(`(?:Error Type|error_type)[:\s]+([A-Za-z]+Error)`)
	errMsgRe  = regexp.MustCompile(`(?:Error Message|error_message)[:\s]+([^\n]+)`)
	descRe    = regexp.MustCompile(`(?:Description|description)[:\s]+([^\n]+)`)
)

// RCA recovers a diagnosis record from model output. The returned
// strategy names which tier produced the record.
func RCA(text string) (*memory.RCAResult, string, error) {
	raw, strategy, rerr := recoverObject(text, rcaShape)
	if raw != nil {
		line, err := coerceLine(raw["affected_line"])
		if err != nil {
			return nil, strategy, err
		}
		return &memory.RCAResult{
			ErrorType:        asString(raw["error_type"]),
			ErrorMessage:     asString(raw["error_message"]),
			RootCause:        asString(raw["root_cause"]),
			AffectedFile:     asString(raw["affected_file"]),
			AffectedLine:     line,
			AffectedFunction: asString(raw["affected_function"]),
			Evidence:         asStringList(raw["evidence"]),
		}, strategy, nil
	}

	// Degraded tier: salvage the error identity from prose.
	if m := errTypeRe.FindStringSubmatch(text); m != nil {
		msg := ""
		if mm := errMsgRe.FindStringSubmatch(text); mm != nil {
			msg = strings.TrimSpace(mm[1])
		}
		return &memory.RCAResult{
			ErrorType:    m[1],
			ErrorMessage: msg,
			RootCause:    "Unable to parse structured output - see raw analysis",
			Evidence:     []string{"Raw output parsing required manual review"},
		}, StrategyLineScan, nil
	}

	if rerr != nil {
		return nil, strategy, rerr
	}
	return nil, "", fmt.Errorf("no diagnosis found in output")
}

// Fix recovers a fix-plan record from model output.
func Fix(text string) (*memory.FixPlan, string, error) {
	raw, strategy, rerr := recoverObject(text, fixShape)
	if raw != nil {
		return &memory.FixPlan{
			Description:          asString(raw["description"]),
			Steps:                asStringList(raw["steps"]),
			SafetyConsiderations: asStringList(raw["safety_considerations"]),
			ExpectedOutcome:      asString(raw["expected_outcome"]),
		}, strategy, nil
	}

	if m := descRe.FindStringSubmatch(text); m != nil {
		return &memory.FixPlan{
			Description:          strings.TrimSpace(m[1]),
			Steps:                []string{"Manual parsing required - see raw output"},
			SafetyConsiderations: []string{},
			ExpectedOutcome:      "Review raw output for details",
		}, StrategyLineScan, nil
	}

	if rerr != nil {
		return nil, strategy, rerr
	}
	return nil, "", fmt.Errorf("no fix plan found in output")
}

// Patch recovers a patch-metadata record from model output. The patch
// shape has no degraded tier: a half-understood patch is worse than a
// reported failure.
func Patch(text string) (*memory.PatchMetadata, string, error) {
	raw, strategy, rerr := recoverObject(text, patchShape)
	if raw == nil {
		if rerr != nil {
			return nil, strategy, rerr
		}
		return nil, "", fmt.Errorf("no patch metadata found in output")
	}
	return &memory.PatchMetadata{
		OriginalFile:  asString(raw["original_file"]),
		PatchedFile:   asString(raw["patched_file"]),
		ChangesMade:   asStringList(raw["changes_made"]),
		LinesModified: asStringList(raw["lines_modified"]),
		PatchContent:  asString(raw["patch_content"]),
	}, strategy, nil
}
