package sync

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// statLocal never fails: anything that is not a readable regular file counts as absent.
func statLocal(fs afero.Fs, path string) LocalFileState {
	info, err := fs.Stat(path)
	if err != nil || info.IsDir() {
		return LocalFileState{}
	}

	return LocalFileState{
		Exists:     true,
		ModifiedAt: info.ModTime(),
		Size:       info.Size(),
	}
}

func readLocal(fs afero.Fs, path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

// writeLocal replaces the file content in place and stamps it with modTime.
func writeLocal(fs afero.Fs, path string, content []byte, modTime time.Time) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	perm := os.FileMode(0o644)
	if info, err := fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	if err := afero.WriteFile(fs, path, content, perm); err != nil {
		return err
	}
	return fs.Chtimes(path, modTime, modTime)
}
