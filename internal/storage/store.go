package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Config lists the folders of the local archive store.
type Config struct {
	Tmp          string `mapstructure:"tmp"`
	Lyrics       string `mapstructure:"lyrics"`
	Scores       string `mapstructure:"scores"`
	Tablatures   string `mapstructure:"tablatures"`
	Recordings   string `mapstructure:"recordings"`
	Translations string `mapstructure:"translations"`
}

// DefaultConfig keeps every folder under ./storage.
func DefaultConfig() Config {
	return Config{
		Tmp:          filepath.Join("storage", "tmp"),
		Lyrics:       filepath.Join("storage", "lyrics"),
		Scores:       filepath.Join("storage", "scores"),
		Tablatures:   filepath.Join("storage", "tablatures"),
		Recordings:   filepath.Join("storage", "recordings"),
		Translations: filepath.Join("storage", "translations"),
	}
}

// Folder names one storage area.
type Folder string

const (
	FolderLyrics       Folder = "lyrics"
	FolderScores       Folder = "scores"
	FolderTablatures   Folder = "tablatures"
	FolderRecordings   Folder = "recordings"
	FolderTranslations Folder = "translations"
)

// ErrInvalidName is returned for file names that would escape their folder.
var ErrInvalidName = errors.New("invalid file name")

// Store keeps archive files in local folders.
type Store struct {
	cfg Config
}

// New creates the configured folders and returns a Store over them.
func New(cfg Config) (*Store, error) {
	for _, dir := range []string{cfg.Tmp, cfg.Lyrics, cfg.Scores, cfg.Tablatures, cfg.Recordings, cfg.Translations} {
		if strings.TrimSpace(dir) == "" {
			return nil, errors.New("storage folder not configured")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create storage folder %s", dir)
		}
	}
	return &Store{cfg: cfg}, nil
}

func (s *Store) dir(folder Folder) (string, error) {
	switch folder {
	case FolderLyrics:
		return s.cfg.Lyrics, nil
	case FolderScores:
		return s.cfg.Scores, nil
	case FolderTablatures:
		return s.cfg.Tablatures, nil
	case FolderRecordings:
		return s.cfg.Recordings, nil
	case FolderTranslations:
		return s.cfg.Translations, nil
	}
	return "", errors.Newf("unknown storage folder %q", folder)
}

// Path resolves name inside folder.
func (s *Store) Path(folder Folder, name string) (string, error) {
	dir, err := s.dir(folder)
	if err != nil {
		return "", err
	}
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return filepath.Join(dir, name), nil
}

// SaveTemp copies r into a new file of the temp folder and returns its path.
func (s *Store) SaveTemp(r io.Reader) (string, error) {
	f, err := os.CreateTemp(s.cfg.Tmp, "upload-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "write temp file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "close temp file")
	}
	return f.Name(), nil
}

// Move places the file at src into folder as name, replacing any file there.
func (s *Store) Move(src string, folder Folder, name string) (string, error) {
	dst, err := s.Path(folder, name)
	if err != nil {
		return "", err
	}
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}
	// rename fails across devices; fall back to copy and remove
	if err := copyFile(src, dst); err != nil {
		return "", errors.Wrapf(err, "move %s to %s", src, dst)
	}
	if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
		return dst, errors.Wrapf(err, "remove %s", src)
	}
	return dst, nil
}

// Remove deletes name from folder. A missing file is not an error.
func (s *Store) Remove(folder Folder, name string) error {
	path, err := s.Path(folder, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", path)
	}
	return nil
}

// Stash renames an existing file name of folder to a hidden sibling so it can
// be restored later. It returns the sibling's name, or "" when there is no
// file to stash.
func (s *Store) Stash(folder Folder, name string) (string, error) {
	src, err := s.Path(folder, name)
	if err != nil {
		return "", err
	}
	stash := "." + name + "." + uuid.NewString() + ".bak"
	dst, err := s.Path(folder, stash)
	if err != nil {
		return "", err
	}
	if err := os.Rename(src, dst); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, "stash %s", src)
	}
	return stash, nil
}

// Unstash puts a file saved by Stash back under name, replacing whatever
// is there now.
func (s *Store) Unstash(folder Folder, stash, name string) error {
	src, err := s.Path(folder, stash)
	if err != nil {
		return err
	}
	dst, err := s.Path(folder, name)
	if err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		return errors.Wrapf(err, "restore %s", dst)
	}
	return nil
}

// RemoveTemp deletes an upload left in the temp folder.
func (s *Store) RemoveTemp(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", path)
	}
	return nil
}

// Open opens name from folder for reading. The caller closes the file.
func (s *Store) Open(folder Folder, name string) (*os.File, os.FileInfo, error) {
	path, err := s.Path(folder, name)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return f, info, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
