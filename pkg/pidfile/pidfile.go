package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// PIDFile is an exclusively locked file holding the pid of the running
// process. The lock keeps a second instance from starting with the same file.
type PIDFile struct {
	path string
	lock *flock.Flock
}

// Acquire locks path and writes the current pid into it
func Acquire(path string) (*PIDFile, error) {
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("pid file %q: path not absolute", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create pid file directory")
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "lock pid file %s", path)
	}
	if !locked {
		return nil, fmt.Errorf("pid file %s is locked by another process", path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = lock.Unlock()
		return nil, errors.Wrapf(err, "write pid file %s", path)
	}
	return &PIDFile{path: path, lock: lock}, nil
}

// Path returns the location of the pid file
func (p *PIDFile) Path() string {
	return p.path
}

// Release removes the pid file and drops the lock
func (p *PIDFile) Release() error {
	removeErr := os.Remove(p.path)
	if err := p.lock.Unlock(); err != nil {
		return errors.Wrap(err, "unlock pid file")
	}
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return errors.Wrap(removeErr, "remove pid file")
	}
	return nil
}
