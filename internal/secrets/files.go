package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// RecordExt is the extension of every encrypted record file.
const RecordExt = ".enc"

// FindRecordFiles returns the encrypted record files directly inside dir,
// sorted by name. Temp files left by an interrupted write are skipped.
func FindRecordFiles(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "*"+RecordExt)
	if err != nil {
		return nil, fmt.Errorf("failed to list records in %s: %w", dir, err)
	}

	var files []string
	for _, match := range matches {
		if !isRecordFile(match) {
			continue
		}
		files = append(files, match)
	}
	sort.Strings(files)
	return files, nil
}

// FindOrphanedTempFiles returns temp files left behind by interrupted
// atomic writes, as absolute paths.
func FindOrphanedTempFiles(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), ".*.tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to list temp files in %s: %w", dir, err)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		files = append(files, filepath.Join(dir, match))
	}
	sort.Strings(files)
	return files, nil
}

func isRecordFile(name string) bool {
	base := filepath.Base(name)
	return filepath.Ext(base) == RecordExt && base[0] != '.'
}
