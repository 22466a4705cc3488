// Package memory implements the shared state store that carries stage
// results through the pipeline. It holds at most one record per stage,
// hands each downstream agent only the slice of state it is entitled to,
// and persists the whole store as one JSON document.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/lucasnoah/tracefix/internal/jsonio"
)

const storeVersion = "1.0"

// Metadata tracks store lifecycle timestamps.
type Metadata struct {
	CreatedAt   string `json:"created_at"`
	LastUpdated string `json:"last_updated"`
	Version     string `json:"version"`
}

// state is the persisted document shape.
type state struct {
	RCA      *RCAResult     `json:"rca"`
	FixPlan  *FixPlan       `json:"fix_plan"`
	Patch    *PatchMetadata `json:"patch_metadata"`
	Metadata Metadata       `json:"metadata"`
}

// Memory is the shared state store. All access goes through one mutex;
// setters replace the previous record wholesale.
type Memory struct {
	mu sync.Mutex
	st state
}

// New returns an empty store stamped with a creation time.
func New() *Memory {
	now := nowUTC()
	return &Memory{st: state{
		Metadata: Metadata{CreatedAt: now, LastUpdated: now, Version: storeVersion},
	}}
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SetRCA replaces the RCA record, stamping it and the store.
func (m *Memory) SetRCA(r RCAResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Timestamp = nowUTC()
	m.st.RCA = &r
	m.st.Metadata.LastUpdated = r.Timestamp
}

// SetFixPlan replaces the fix-plan record, stamping it and the store.
func (m *Memory) SetFixPlan(p FixPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Timestamp = nowUTC()
	m.st.FixPlan = &p
	m.st.Metadata.LastUpdated = p.Timestamp
}

// SetPatch replaces the patch record, stamping it and the store.
func (m *Memory) SetPatch(p PatchMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Timestamp = nowUTC()
	m.st.Patch = &p
	m.st.Metadata.LastUpdated = p.Timestamp
}

// RCA returns a copy of the RCA record, or false if none is set.
func (m *Memory) RCA() (RCAResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.RCA == nil {
		return RCAResult{}, false
	}
	return *m.st.RCA, true
}

// GetFixPlan returns a copy of the fix-plan record, or false if none is set.
func (m *Memory) GetFixPlan() (FixPlan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.FixPlan == nil {
		return FixPlan{}, false
	}
	return *m.st.FixPlan, true
}

// GetPatch returns a copy of the patch record, or false if none is set.
func (m *Memory) GetPatch() (PatchMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.Patch == nil {
		return PatchMetadata{}, false
	}
	return *m.st.Patch, true
}

// ContextFor returns the slice of state an agent is entitled to read.
// The fix agent sees only the RCA result; the patch agent sees the RCA
// result and the fix plan; anything else gets an empty view. Map values
// are nil when the upstream record is absent, so callers can tell "not
// produced yet" from "not entitled".
func (m *Memory) ContextFor(agent string) map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := map[string]interface{}{}
	switch agent {
	case "fix_agent":
		ctx["rca"] = copyRCA(m.st.RCA)
	case "patch_agent":
		ctx["rca"] = copyRCA(m.st.RCA)
		ctx["fix_plan"] = copyFixPlan(m.st.FixPlan)
	}
	return ctx
}

func copyRCA(r *RCAResult) interface{} {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func copyFixPlan(p *FixPlan) interface{} {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Save writes the whole store to path as pretty-printed JSON.
func (m *Memory) Save(path string) error {
	m.mu.Lock()
	snap := m.st
	m.mu.Unlock()
	if err := jsonio.WriteJSON(path, snap); err != nil {
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}

// Load replaces the in-memory state with the document at path.
func (m *Memory) Load(path string) error {
	var st state
	if err := jsonio.ReadJSON(path, &st); err != nil {
		return fmt.Errorf("load memory: %w", err)
	}
	m.mu.Lock()
	m.st = st
	m.mu.Unlock()
	return nil
}
