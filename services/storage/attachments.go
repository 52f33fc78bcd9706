package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"job-tracker-backend/logger"
)

// AttachmentPrefix namespaces job-description files in the bucket.
const AttachmentPrefix = "jd_files/"

const maxNameLen = 100

// Attachments stages uploaded job-description files locally and mirrors them
// to the remote store under a per-user key.
type Attachments struct {
	remote  Remote
	dir     string
	timeout time.Duration
	metrics *Metrics
}

func NewAttachments(remote Remote, dir string, timeout time.Duration, metrics *Metrics) *Attachments {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Attachments{remote: remote, dir: dir, timeout: timeout, metrics: metrics}
}

// Save stores r as a new attachment for userID and returns its key, e.g.
// "12/0b6c...-resume.pdf". The staged copy is dropped once the remote has
// it; without a remote the staged copy is the durable one.
func (a *Attachments) Save(ctx context.Context, userID uint, filename string, r io.Reader) (string, error) {
	key := fmt.Sprintf("%d/%s-%s", userID, uuid.NewString(), SanitizeFilename(filename))
	local := a.localPath(key)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", errors.Wrap(err, "create attachment staging directory")
	}

	f, err := os.Create(local)
	if err != nil {
		return "", errors.Wrap(err, "create staged attachment")
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(local)
		return "", errors.Wrap(err, "write staged attachment")
	}

	if a.remote == nil {
		return key, nil
	}

	staged, err := os.Open(local)
	if err != nil {
		return "", errors.Wrap(err, "reopen staged attachment")
	}
	defer staged.Close()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	start := time.Now()
	if err := a.remote.Upload(ctx, AttachmentPrefix+key, staged, contentType(filename)); err != nil {
		a.metrics.push(resultError, 0)
		_ = os.Remove(local)
		return "", errors.Mark(errors.Wrap(err, "push attachment"), ErrPushFailed)
	}
	a.metrics.push(resultOK, 0)
	logger.Named("attachments").Infow("attachment stored",
		logger.FieldKey, key, logger.FieldSize, n, logger.FieldDurationMS, time.Since(start).Milliseconds())

	_ = os.Remove(local)
	return key, nil
}

// Open returns a readable copy of the attachment, fetching it from the
// remote when no staged copy exists. The caller closes the file.
func (a *Attachments) Open(ctx context.Context, key string) (*os.File, error) {
	if !validKey(key) {
		return nil, errors.Wrapf(ErrAttachmentNotFound, "invalid key %q", key)
	}
	local := a.localPath(key)
	if f, err := os.Open(local); err == nil {
		return f, nil
	}
	if a.remote == nil {
		return nil, errors.Wrapf(ErrAttachmentNotFound, "%s", key)
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return nil, errors.Wrap(err, "create attachment staging directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(local), ".fetch-*")
	if err != nil {
		return nil, errors.Wrap(err, "create attachment fetch file")
	}
	defer os.Remove(tmp.Name())

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	err = a.remote.Download(ctx, AttachmentPrefix+key, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if errors.Is(err, ErrObjectNotFound) {
		return nil, errors.Wrapf(ErrAttachmentNotFound, "%s", key)
	}
	if err != nil {
		return nil, errors.Wrap(err, "fetch attachment")
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return nil, errors.Wrap(err, "install fetched attachment")
	}
	return os.Open(local)
}

// Delete removes the staged copy and the remote object. A missing object is
// not an error.
func (a *Attachments) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return nil
	}
	if err := os.Remove(a.localPath(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove staged attachment")
	}
	if a.remote == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.remote.Delete(ctx, AttachmentPrefix+key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return errors.Wrap(err, "delete remote attachment")
	}
	return nil
}

// DisplayName strips the user and uuid qualifiers from a key.
func DisplayName(key string) string {
	base := path.Base(key)
	// uuid is 36 chars followed by "-"
	if len(base) > 37 && base[36] == '-' {
		if _, err := uuid.Parse(base[:36]); err == nil {
			return base[37:]
		}
	}
	return base
}

func (a *Attachments) localPath(key string) string {
	return filepath.Join(a.dir, filepath.FromSlash(key))
}

// validKey rejects keys that could escape the staging directory.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// SanitizeFilename keeps the base name with only [A-Za-z0-9._-] characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" {
		return "file"
	}
	return out
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
