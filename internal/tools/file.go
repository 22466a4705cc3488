package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// serviceDirs are app-layout prefixes that resolve under app/ first.
var serviceDirs = []string{"services/", "models/", "routes/", "config/", "utils/"}

// resolveCodebasePath maps a model-supplied path onto the local checkout.
// Traces record container paths (/usr/srv/app/...), so that prefix is
// stripped and the remainder probed against the codebase root and its
// app/ subdirectory.
func resolveCodebasePath(codebase, path string, wantDir bool) (string, []string, bool) {
	path = strings.TrimPrefix(path, containerPrefix)

	var candidates []string
	if filepath.IsAbs(path) {
		candidates = []string{path}
	} else {
		candidates = []string{
			filepath.Join(codebase, "app", path),
			filepath.Join(codebase, path),
			path,
		}
		for _, d := range serviceDirs {
			if strings.HasPrefix(path, d) {
				candidates = append([]string{filepath.Join(codebase, "app", path)}, candidates...)
				break
			}
		}
	}

	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil {
			continue
		}
		if wantDir == info.IsDir() {
			return c, candidates, true
		}
	}
	return "", candidates, false
}

// ReadFile reads a file from the codebase with numbered lines and an
// optional 1-based line range.
type ReadFile struct {
	cfg Config
}

// NewReadFile builds the read_file tool.
func NewReadFile(cfg Config) *ReadFile {
	return &ReadFile{cfg: cfg.withDefaults()}
}

func (t *ReadFile) Name() string { return "read_file" }

func (t *ReadFile) Description() string {
	return "Read the contents of a file from the codebase, optionally for a specific 1-based line range. Returns numbered lines."
}

func (t *ReadFile) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"file_path":  map[string]interface{}{"type": "string", "description": "Path to the file, relative to the codebase or absolute"},
			"start_line": map[string]interface{}{"type": "integer", "description": "Optional 1-based start line (inclusive)"},
			"end_line":   map[string]interface{}{"type": "integer", "description": "Optional 1-based end line (inclusive)"},
		},
		"required": []string{"file_path"},
	}
}

func (t *ReadFile) Call(args map[string]interface{}) string {
	original := argString(args, "file_path")
	if strings.TrimSpace(original) == "" {
		return "Error: file_path cannot be empty"
	}

	resolved, candidates, ok := resolveCodebasePath(t.cfg.CodebasePath, original, false)
	if !ok {
		var b strings.Builder
		fmt.Fprintf(&b, "Error: File not found. Original path: %s\nSearched in:\n", original)
		for _, c := range candidates {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err)
	}
	if info.Size() > t.cfg.MaxFileBytes {
		return fmt.Sprintf("Error: File too large (%d bytes). Maximum allowed: %d bytes", info.Size(), t.cfg.MaxFileBytes)
	}

	ext := strings.ToLower(filepath.Ext(resolved))
	allowed := false
	for _, a := range t.cfg.AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Sprintf("Error: File type not allowed. Allowed types: %s", strings.Join(t.cfg.AllowedExtensions, ", "))
	}

	startLine, hasStart := argInt(args, "start_line")
	endLine, hasEnd := argInt(args, "end_line")
	if hasStart && startLine < 1 {
		return "Error: start_line must be >= 1"
	}
	if hasEnd && endLine < 1 {
		return "Error: end_line must be >= 1"
	}
	if hasStart && hasEnd && startLine > endLine {
		return "Error: start_line cannot be greater than end_line"
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err)
	}

	lines := strings.Split(string(data), "\n")
	total := len(lines)

	startIdx := 0
	if hasStart {
		startIdx = startLine - 1
	}
	endIdx := total
	if hasEnd {
		endIdx = endLine
	}
	if startIdx > total {
		startIdx = total
	}
	if endIdx > total {
		endIdx = total
	}
	if endIdx < startIdx {
		endIdx = startIdx
	}

	truncatedNote := ""
	if endIdx-startIdx > maxDisplayLines {
		endIdx = startIdx + maxDisplayLines
		truncatedNote = fmt.Sprintf("\n\n[Truncated to %d lines to keep output concise]", maxDisplayLines)
	}

	var numbered strings.Builder
	for i, line := range lines[startIdx:endIdx] {
		if i > 0 {
			numbered.WriteByte('\n')
		}
		fmt.Fprintf(&numbered, "%4d | %s", startIdx+i+1, line)
	}

	rangeInfo := ""
	if hasStart || hasEnd {
		rangeInfo = fmt.Sprintf(" (showing lines %d-%d of %d)", startIdx+1, endIdx, total)
	}

	return fmt.Sprintf("File: %s\nSize: %d bytes\nLines: %d%s\n\n%s%s",
		resolved, info.Size(), total, rangeInfo, numbered.String(), truncatedNote)
}

// WriteFile writes patched files into the output directory, renaming
// any existing file to a timestamped backup first.
type WriteFile struct {
	cfg Config
}

// NewWriteFile builds the write_file tool.
func NewWriteFile(cfg Config) *WriteFile {
	return &WriteFile{cfg: cfg.withDefaults()}
}

func (t *WriteFile) Name() string { return "write_file" }

func (t *WriteFile) Description() string {
	return "Write content to a file in the outputs directory. Use this to create the patched version of a source file. Only the basename is used; files always land in outputs."
}

func (t *WriteFile) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"file_path": map[string]interface{}{"type": "string", "description": "Name for the output file"},
			"content":   map[string]interface{}{"type": "string", "description": "The content to write"},
		},
		"required": []string{"file_path", "content"},
	}
}

func (t *WriteFile) Call(args map[string]interface{}) string {
	content := argString(args, "content")
	if strings.TrimSpace(content) == "" {
		return "Error: Content cannot be empty"
	}

	filename := filepath.Base(argString(args, "file_path"))
	if filename == "" || filename == "." || filename == "/" {
		return "Error: Invalid filename"
	}

	if err := os.MkdirAll(t.cfg.OutputDir, 0o755); err != nil {
		return fmt.Sprintf("Error writing file: %v", err)
	}

	outputPath := filepath.Join(t.cfg.OutputDir, filename)
	if _, err := os.Stat(outputPath); err == nil {
		backup := filepath.Join(t.cfg.OutputDir, fmt.Sprintf("%s.backup_%d", filename, time.Now().Unix()))
		if err := os.Rename(outputPath, backup); err != nil {
			return fmt.Sprintf("Error backing up existing file: %v", err)
		}
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Sprintf("Error writing file: %v", err)
	}

	lineCount := strings.Count(content, "\n") + 1
	return fmt.Sprintf("Success: File written to %s\nSize: %d bytes\nLines: %d", outputPath, len(content), lineCount)
}

// ListDirectory lists a codebase directory, hidden entries skipped.
type ListDirectory struct {
	cfg Config
}

// NewListDirectory builds the list_directory tool.
func NewListDirectory(cfg Config) *ListDirectory {
	return &ListDirectory{cfg: cfg.withDefaults()}
}

func (t *ListDirectory) Name() string { return "list_directory" }

func (t *ListDirectory) Description() string {
	return "List the contents of a directory in the codebase. Use this to explore structure and find relevant files."
}

func (t *ListDirectory) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"dir_path": map[string]interface{}{"type": "string", "description": "Path to the directory, relative to the codebase or absolute"},
		},
		"required": []string{"dir_path"},
	}
}

func (t *ListDirectory) Call(args map[string]interface{}) string {
	original := argString(args, "dir_path")
	if strings.TrimSpace(original) == "" {
		return "Error: dir_path cannot be empty"
	}

	resolved, candidates, ok := resolveCodebasePath(t.cfg.CodebasePath, original, true)
	if !ok {
		var b strings.Builder
		fmt.Fprintf(&b, "Error: Directory not found. Original: %s\nSearched:\n", original)
		for _, c := range candidates {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return fmt.Sprintf("Error listing directory: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var items []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.IsDir() {
			items = append(items, fmt.Sprintf("  [DIR]  %s/", e.Name()))
		} else {
			size := int64(0)
			if info, err := e.Info(); err == nil {
				size = info.Size()
			}
			items = append(items, fmt.Sprintf("  [FILE] %s (%d bytes)", e.Name(), size))
		}
	}

	if len(items) == 0 {
		return fmt.Sprintf("Directory is empty: %s", resolved)
	}
	return fmt.Sprintf("Directory: %s\nTotal items: %d\n\n%s", resolved, len(items), strings.Join(items, "\n"))
}
