package backup

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/state"
)

// FileRecord describes one captured file inside a generation
type FileRecord struct {
	Source    string `yaml:"source"`
	SHA256    string `yaml:"sha256"`
	SizeBytes int64  `yaml:"size_bytes"`
}

// Generation is one archive pass
type Generation struct {
	Stamp   string       `yaml:"stamp"`
	TakenAt time.Time    `yaml:"taken_at"`
	Files   []FileRecord `yaml:"files"`
}

// Manifest indexes every retained generation, newest first
type Manifest struct {
	Generations []Generation `yaml:"generations"`
}

// loadManifest reads the manifest; a missing file is an empty manifest
func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("backup: decoding manifest: %w", err)
	}
	return &m, nil
}

// saveManifest persists the manifest with write-then-rename
func saveManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("backup: encoding manifest: %w", err)
	}
	return state.WriteFileAtomic(path, data, 0644)
}
