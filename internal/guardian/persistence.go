package guardian

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sabith-07/WISE/internal/domain"
)

const (
	fileVersion = 1

	fileName   = "guardians.json"
	appDirName = "wise"
)

type guardianFile struct {
	Version     int               `json:"version"`
	Guardians   []domain.Guardian `json:"guardians"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// FileStore saves the guardian list to ~/.local/state/wise/guardians.json
// (respecting XDG_STATE_HOME).
type FileStore struct {
	dir string
}

// NewFileStore stores guardians in dir. The directory is created on the
// first Save. An empty dir selects the XDG state path.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = defaultStateDir()
	}
	return &FileStore{dir: dir}
}

// Path returns the full path to the guardian file.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, fileName)
}

// Load reads the saved list. found is false when no file exists yet.
func (s *FileStore) Load() (list []domain.Guardian, found bool, err error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading guardians: %w", err)
	}

	var f guardianFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("parsing guardians: %w", err)
	}
	if f.Guardians == nil {
		f.Guardians = []domain.Guardian{}
	}
	return f.Guardians, true, nil
}

// Save writes the list atomically via a temp file and rename.
func (s *FileStore) Save(list []domain.Guardian) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(guardianFile{
		Version:     fileVersion,
		Guardians:   list,
		LastUpdated: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling guardians: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".guardians-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		return fmt.Errorf("renaming guardian file: %w", err)
	}
	committed = true
	return nil
}

func defaultStateDir() string {
	if base := os.Getenv("XDG_STATE_HOME"); base != "" {
		return filepath.Join(base, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".local", "state", appDirName)
}
