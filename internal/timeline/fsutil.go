package timeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func removeFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func listJSONNames(timelinesDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(timelinesDir, "*.json"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".json")
		if name == Glob {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
