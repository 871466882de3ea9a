package planner

import (
	"fmt"
	"os"
	"path/filepath"
)

// Saver writes exported spreadsheets into a directory.
type Saver struct {
	Dir string
}

// Save writes the spreadsheet and returns the path written.
func (s Saver) Save(sheet *Spreadsheet) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(sheet.Filename))
	if err := os.WriteFile(path, sheet.Data, 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w", sheet.Filename, err)
	}
	return path, nil
}
