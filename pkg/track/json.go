package track

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/figtools/pgfkit/pkg/errors"
)

// The JSON report format mirrors the plain-text report for tools that would
// rather not parse "<role>:<path>" lines:
//
//	{
//	  "dependencies": [
//	    {"role": "r", "path": "scatter.csv"},
//	    {"role": "w", "path": "noise-img0.png"}
//	  ]
//	}

type jsonReport struct {
	Dependencies []jsonEntry `json:"dependencies"`
}

type jsonEntry struct {
	Role string `json:"role"`
	Path string `json:"path"`
}

// WriteJSON encodes report entries as JSON and writes them to w.
func WriteJSON(entries []Entry, w io.Writer) error {
	out := jsonReport{Dependencies: make([]jsonEntry, len(entries))}
	for i, e := range entries {
		out.Dependencies[i] = jsonEntry{Role: string(e.Role), Path: e.Path}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ReadJSON decodes report entries from JSON.
func ReadJSON(r io.Reader) ([]Entry, error) {
	var in jsonReport
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parsing JSON report")
	}
	entries := make([]Entry, 0, len(in.Dependencies))
	for _, e := range in.Dependencies {
		role := Role(e.Role)
		if role != RoleRead && role != RoleWrite {
			return nil, errors.New(errors.ErrCodeInternal, "invalid role %q for %s", e.Role, e.Path)
		}
		entries = append(entries, Entry{Role: role, Path: e.Path})
	}
	return entries, nil
}

// ReadReport parses a plain-text "<role>:<path>" report.
func ReadReport(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		role, path, ok := strings.Cut(line, ":")
		if !ok || (role != string(RoleRead) && role != string(RoleWrite)) {
			return nil, errors.New(errors.ErrCodeInternal, "malformed report line %q", line)
		}
		entries = append(entries, Entry{Role: Role(role), Path: path})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ReadReportFile parses a plain-text report from a file.
func ReadReportFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadReport(f)
}
