package memory

// RCAResult is the structured outcome of the root-cause-analysis stage.
type RCAResult struct {
	ErrorType        string   `json:"error_type"`
	ErrorMessage     string   `json:"error_message"`
	RootCause        string   `json:"root_cause"`
	AffectedFile     string   `json:"affected_file"`
	AffectedLine     int      `json:"affected_line"`
	AffectedFunction string   `json:"affected_function"`
	Evidence         []string `json:"evidence"`
	Timestamp        string   `json:"timestamp"`
}

// FixPlan is the structured outcome of the fix-planning stage.
type FixPlan struct {
	Description          string   `json:"description"`
	Steps                []string `json:"steps"`
	SafetyConsiderations []string `json:"safety_considerations"`
	ExpectedOutcome      string   `json:"expected_outcome"`
	Timestamp            string   `json:"timestamp"`
}

// PatchMetadata is the structured outcome of the patch stage.
type PatchMetadata struct {
	OriginalFile  string   `json:"original_file"`
	PatchedFile   string   `json:"patched_file"`
	ChangesMade   []string `json:"changes_made"`
	LinesModified []string `json:"lines_modified"`
	PatchContent  string   `json:"patch_content"`
	Timestamp     string   `json:"timestamp"`
}
