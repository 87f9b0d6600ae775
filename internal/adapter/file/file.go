// Package file implements a session repository that keeps one JSON file per
// record on an afero filesystem.
package file

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"accountportal/internal/domain"
)

const fileExt = ".json"

// SessionRepo stores records as <dir>/<encoded key>.json. Expiry is derived
// from the file modification time.
type SessionRepo struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
	now func() time.Time
}

var _ domain.SessionRepository = (*SessionRepo)(nil)
var _ domain.SessionSweeper = (*SessionRepo)(nil)

// NewSessionRepo creates dir on fsys if needed and returns a repository over it.
func NewSessionRepo(fsys afero.Fs, dir string, ttl time.Duration) (*SessionRepo, error) {
	if err := fsys.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &SessionRepo{fs: fsys, dir: dir, ttl: ttl, now: time.Now}, nil
}

// NewOSSessionRepo is NewSessionRepo on the host filesystem.
func NewOSSessionRepo(dir string, ttl time.Duration) (*SessionRepo, error) {
	return NewSessionRepo(afero.NewOsFs(), dir, ttl)
}

func (r *SessionRepo) filename(key string) string {
	return path.Join(r.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+fileExt)
}

// Load returns the record for key, or nil if absent or expired.
func (r *SessionRepo) Load(ctx context.Context, key string) (*domain.Session, error) {
	name := r.filename(key)
	info, err := r.fs.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.expired(info) {
		_ = r.fs.Remove(name)
		return nil, nil
	}

	data, err := afero.ReadFile(r.fs, name)
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("file store: decode %s: %w", key, err)
	}
	return &s, nil
}

// Save writes the record through a temporary file and renames it into place.
func (r *SessionRepo) Save(ctx context.Context, key string, s domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	name := r.filename(key)
	tmp := name + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, data, 0o600); err != nil {
		return err
	}
	if err := r.fs.Rename(tmp, name); err != nil {
		_ = r.fs.Remove(tmp)
		return err
	}
	now := r.now()
	return r.fs.Chtimes(name, now, now)
}

// Delete removes the record for key. Deleting a missing key is not an error.
func (r *SessionRepo) Delete(ctx context.Context, key string) error {
	err := r.fs.Remove(r.filename(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// DeleteExpired removes every record older than the ttl.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if r.ttl <= 0 {
		return 0, nil
	}
	entries, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, info := range entries {
		if info.IsDir() || !strings.HasSuffix(info.Name(), fileExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if !r.expired(info) {
			continue
		}
		err := r.fs.Remove(path.Join(r.dir, info.Name()))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *SessionRepo) expired(info fs.FileInfo) bool {
	return r.ttl > 0 && r.now().Sub(info.ModTime()) > r.ttl
}
