// Package snapshot finds and rewrites PicklePersistence files.
package snapshot

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/yndnr/ptb-migrate/internal/core/domain"
)

const (
	backupExtension = ".bak"
	tempInfix       = ".tmp-"

	// DefaultRetentionCount is the number of backups kept per file.
	DefaultRetentionCount = 5
)

// Config configures the snapshot manager.
type Config struct {
	// BackupDir receives backups. Empty keeps them next to the file.
	BackupDir string

	// RetentionCount is the number of backups kept per file, -1 for all.
	RetentionCount int
}

// DefaultConfig returns a Config that keeps backups beside the file.
func DefaultConfig() Config {
	return Config{RetentionCount: DefaultRetentionCount}
}

// Manager reads, backs up and atomically replaces persistence files.
type Manager struct {
	cfg Config
}

// NewManager creates a manager, creating BackupDir when set.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.RetentionCount == 0 || cfg.RetentionCount < -1 {
		return nil, domain.ErrInvalidConfig.WithDetailsf("retention count must be positive or -1, got %d", cfg.RetentionCount)
	}
	if cfg.BackupDir != "" {
		if err := os.MkdirAll(cfg.BackupDir, 0750); err != nil {
			return nil, domain.ErrStorage.WithDetailsf("create backup dir %s", cfg.BackupDir).WithCause(err)
		}
	}
	return &Manager{cfg: cfg}, nil
}

// Info describes file content read or written by the manager.
type Info struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Digest returns the hex BLAKE2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Read returns the content of path and its metadata.
func (m *Manager) Read(path string) ([]byte, *Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, domain.ErrStorage.WithDetailsf("read %s", path).WithCause(err)
	}
	return data, &Info{Path: path, Size: int64(len(data)), Checksum: Digest(data)}, nil
}

// Write replaces path with data. The content goes to a temporary file in
// the same directory, is synced, and is then renamed over path, so
// readers see either the old or the new file. The file mode of an
// existing path is preserved.
func (m *Manager) Write(path string, data []byte) (*Info, error) {
	mode := os.FileMode(0600)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := writeAtomic(path, data, mode); err != nil {
		return nil, domain.ErrStorage.WithDetailsf("write %s", path).WithCause(err)
	}
	return &Info{Path: path, Size: int64(len(data)), Checksum: Digest(data)}, nil
}

// Backup copies path to a new backup file and prunes old backups.
func (m *Manager) Backup(path string) (*Info, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, domain.ErrStorage.WithDetailsf("backup %s", path).WithCause(err)
	}
	defer src.Close()

	stat, err := src.Stat()
	if err != nil {
		return nil, domain.ErrStorage.WithDetailsf("backup %s", path).WithCause(err)
	}

	backupPath := filepath.Join(m.backupDir(path), m.backupName(path))
	hash, _ := blake2b.New256(nil)
	size, err := copyAtomic(backupPath, io.TeeReader(src, hash), stat.Mode().Perm())
	if err != nil {
		return nil, domain.ErrStorage.WithDetailsf("backup %s", path).WithCause(err)
	}

	if err := m.Prune(path); err != nil {
		return nil, err
	}

	return &Info{
		Path:     backupPath,
		Size:     size,
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

// List returns the backups of path, oldest first.
func (m *Manager) List(path string) ([]*Info, error) {
	dir := m.backupDir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.ErrStorage.WithDetailsf("list %s", dir).WithCause(err)
	}

	prefix := filepath.Base(path) + "."
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, backupExtension) {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, prefix), backupExtension)
		if _, err := ulid.ParseStrict(id); err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var infos []*Info
	for _, name := range names {
		p := filepath.Join(dir, name)
		stat, err := os.Stat(p)
		if err != nil {
			continue
		}
		infos = append(infos, &Info{Path: p, Size: stat.Size()})
	}
	return infos, nil
}

// Prune deletes the oldest backups of path beyond RetentionCount.
func (m *Manager) Prune(path string) error {
	if m.cfg.RetentionCount == -1 {
		return nil
	}
	infos, err := m.List(path)
	if err != nil {
		return err
	}
	if len(infos) <= m.cfg.RetentionCount {
		return nil
	}
	for _, info := range infos[:len(infos)-m.cfg.RetentionCount] {
		if err := os.Remove(info.Path); err != nil && !os.IsNotExist(err) {
			return domain.ErrStorage.WithDetailsf("prune %s", info.Path).WithCause(err)
		}
	}
	return nil
}

func (m *Manager) backupDir(path string) string {
	if m.cfg.BackupDir != "" {
		return m.cfg.BackupDir
	}
	return filepath.Dir(path)
}

func (m *Manager) backupName(path string) string {
	return fmt.Sprintf("%s.%s%s", filepath.Base(path), ulid.Make().String(), backupExtension)
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	_, err := copyAtomic(path, bytes.NewReader(data), mode)
	return err
}

// copyAtomic streams r into a temporary sibling of path and renames it
// into place.
func copyAtomic(path string, r io.Reader, mode os.FileMode) (int64, error) {
	tempPath := filepath.Join(filepath.Dir(path), filepath.Base(path)+tempInfix+ulid.Make().String())
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	n, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		return 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := file.Chmod(mode); err != nil {
		file.Close()
		return 0, fmt.Errorf("chmod: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return 0, fmt.Errorf("sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return 0, fmt.Errorf("rename: %w", err)
	}
	return n, nil
}
