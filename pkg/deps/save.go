package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// timestampLayout renders YYYYMMDD_HHMMSS.
	timestampLayout = "20060102_150405"
	// defaultBaseName is used when no source path is known.
	defaultBaseName = "python_libraries"
	savedFileMode   = 0o644
)

// FileName returns "<base>_dependencies_<YYYYMMDD_HHMMSS>.txt" where base is
// the source file name up to its first dot.
func FileName(sourcePath string, now time.Time) string {
	base := defaultBaseName

	if sourcePath != "" {
		name, _, _ := strings.Cut(filepath.Base(sourcePath), ".")
		if name != "" {
			base = name
		}
	}

	return base + "_dependencies_" + now.Format(timestampLayout) + ".txt"
}

// Save writes content to dir under FileName and returns the written path.
func Save(dir, sourcePath, content string, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}

	path := filepath.Join(dir, FileName(sourcePath, now))

	//nolint:gosec // report files are meant to be readable.
	err := os.WriteFile(path, []byte(content), savedFileMode)
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	return path, nil
}
