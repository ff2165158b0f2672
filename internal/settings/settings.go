// Package settings persists the favorites blob and debounces save
// requests, playing the role the frontend's settings store played for the
// original favorites feature.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the favorites blob inside the data directory.
const FileName = "favorites.json"

// Path returns the favorites file location under dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads the persisted favorites blob. A missing file is not an error;
// it just means nothing has been favorited yet.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading favorites file: %w", err)
	}
	return data, nil
}

// Save writes the blob atomically: temp file in the same directory, then
// rename, so a crash mid-write never leaves a truncated favorites file.
func Save(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp favorites file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing favorites file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing favorites file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting favorites file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing favorites file: %w", err)
	}
	return nil
}
