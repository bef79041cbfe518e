package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ListInputs returns the regular files in dir whose name has an extension,
// sorted by name.
func ListInputs(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path is not a directory: %s", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.*"))
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}

	var inputs []string
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		inputs = append(inputs, m)
	}

	sort.Strings(inputs)
	return inputs, nil
}
