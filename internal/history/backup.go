package history

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrInMemoryStore indicates the store uses an in-memory DB and cannot be
// snapshotted.
var ErrInMemoryStore = errors.New("history: in-memory store cannot be snapshotted")

// SnapshotTo flushes and copies the on-disk database file to dstPath.
// CHECKPOINT forces the WAL into the main file so the copy is consistent.
func (s *Store) SnapshotTo(dstPath string) error {
	if s.dbPath == "" {
		return ErrInMemoryStore
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return errors.Wrap(err, "create snapshot dir")
	}

	if _, err := s.db.Exec("CHECKPOINT"); err != nil {
		return errors.Wrap(err, "checkpoint")
	}

	return errors.Wrap(copyFile(s.dbPath, dstPath), "copy database file")
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := dstPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dstPath)
}
