package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringReader(s string) io.Reader { return strings.NewReader(s) }

func readAll(t *testing.T, f *os.File) string {
	t.Helper()
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(data)
}

func TestAttachmentRoundTripThroughRemote(t *testing.T) {
	remote := NewMemoryRemote()
	dir := t.TempDir()
	a := NewAttachments(remote, dir, 0, nil)
	ctx := context.Background()

	key, err := a.Save(ctx, 3, "Senior Engineer JD.pdf", stringReader("jd body"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "3/"))
	assert.True(t, strings.HasSuffix(key, "-Senior_Engineer_JD.pdf"))
	assert.Equal(t, "Senior_Engineer_JD.pdf", DisplayName(key))

	stored, ok := remote.Object(AttachmentPrefix + key)
	require.True(t, ok)
	assert.Equal(t, "jd body", string(stored))

	// staged copy is discarded after the push
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))

	f, err := a.Open(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "jd body", readAll(t, f))
}

func TestAttachmentKeysAreUnique(t *testing.T) {
	a := NewAttachments(NewMemoryRemote(), t.TempDir(), 0, nil)
	k1, err := a.Save(context.Background(), 1, "jd.txt", stringReader("a"))
	require.NoError(t, err)
	k2, err := a.Save(context.Background(), 2, "jd.txt", stringReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestAttachmentLocalOnly(t *testing.T) {
	a := NewAttachments(nil, t.TempDir(), 0, nil)
	ctx := context.Background()

	key, err := a.Save(ctx, 1, "jd.txt", stringReader("local"))
	require.NoError(t, err)

	f, err := a.Open(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "local", readAll(t, f))

	require.NoError(t, a.Delete(ctx, key))
	_, err = a.Open(ctx, key)
	assert.True(t, errors.Is(err, ErrAttachmentNotFound))
}

func TestAttachmentOpenMissing(t *testing.T) {
	a := NewAttachments(NewMemoryRemote(), t.TempDir(), 0, nil)
	_, err := a.Open(context.Background(), "1/nothing.pdf")
	assert.True(t, errors.Is(err, ErrAttachmentNotFound))
}

func TestAttachmentRejectsTraversal(t *testing.T) {
	a := NewAttachments(NewMemoryRemote(), t.TempDir(), 0, nil)
	for _, key := range []string{"", "../etc/passwd", "/abs", "1/../../x", "a//b"} {
		_, err := a.Open(context.Background(), key)
		assert.True(t, errors.Is(err, ErrAttachmentNotFound), key)
	}
}

func TestAttachmentDeleteRemovesRemote(t *testing.T) {
	remote := NewMemoryRemote()
	a := NewAttachments(remote, t.TempDir(), 0, nil)
	ctx := context.Background()

	key, err := a.Save(ctx, 1, "jd.txt", stringReader("x"))
	require.NoError(t, err)
	require.NoError(t, a.Delete(ctx, key))
	assert.Empty(t, remote.Keys())

	// deleting twice is fine
	require.NoError(t, a.Delete(ctx, key))
}

func TestAttachmentSavePushFailure(t *testing.T) {
	dir := t.TempDir()
	a := NewAttachments(failingRemote{err: errors.New("down")}, dir, 0, nil)

	_, err := a.Save(context.Background(), 1, "jd.txt", stringReader("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPushFailed))
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"resume.pdf":          "resume.pdf",
		"my jd (final).docx":  "my_jd__final_.docx",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\jd.txt`:  "jd.txt",
		"":                    "file",
		"..":                  "file",
		".hidden":             "hidden",
		"naïve.txt":           "na_ve.txt",
		strings.Repeat("a", 150) + ".pdf": strings.Repeat("a", 96) + ".pdf",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestDisplayNameWithoutUUID(t *testing.T) {
	assert.Equal(t, "plain.pdf", DisplayName("4/plain.pdf"))
}
