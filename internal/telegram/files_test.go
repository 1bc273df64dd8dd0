package telegram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFileSource struct {
	locations  map[string]string
	contents   map[string][]byte
	resolveErr error
	readErr    error
	reads      int
}

func (f *fakeFileSource) ResolveFileLocation(_ context.Context, fileID string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.locations[fileID], nil
}

func (f *fakeFileSource) ReadFile(_ context.Context, location string) ([]byte, error) {
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.contents[location], nil
}

func TestFetcher_WritesAndCreatesParents(t *testing.T) {
	src := &fakeFileSource{
		locations: map[string]string{"f1": "photos/file_1.jpg"},
		contents:  map[string][]byte{"photos/file_1.jpg": []byte("jpeg")},
	}
	dest := filepath.Join(t.TempDir(), "a", "b", "photo_1.jpg")

	path, err := NewFetcher(src).Fetch(context.Background(), "f1", dest)
	require.NoError(t, err)
	assert.Equal(t, dest, path)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestFetcher_OverwritesExisting(t *testing.T) {
	src := &fakeFileSource{
		locations: map[string]string{"f1": "loc"},
		contents:  map[string][]byte{"loc": []byte("new")},
	}
	dest := filepath.Join(t.TempDir(), "file.bin")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	_, err := NewFetcher(src).Fetch(context.Background(), "f1", dest)
	require.NoError(t, err)

	data, _ := os.ReadFile(dest)
	assert.Equal(t, "new", string(data))
}

func TestFetcher_ResolveFailureSkipsRead(t *testing.T) {
	src := &fakeFileSource{resolveErr: &TransportError{Op: "getFile", Description: "file is too big"}}
	dest := filepath.Join(t.TempDir(), "file.bin")

	_, err := NewFetcher(src).Fetch(context.Background(), "f1", dest)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, 0, src.reads)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetcher_ReadFailureKeepsDestination(t *testing.T) {
	src := &fakeFileSource{
		locations: map[string]string{"f1": "loc"},
		readErr:   &TransportError{Op: "download", Description: "connection reset"},
	}
	dest := filepath.Join(t.TempDir(), "file.bin")
	require.NoError(t, os.WriteFile(dest, []byte("keep me"), 0644))

	_, err := NewFetcher(src).Fetch(context.Background(), "f1", dest)
	require.Error(t, err)

	data, _ := os.ReadFile(dest)
	assert.Equal(t, "keep me", string(data))
}

func TestFetcher_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	src := &fakeFileSource{
		locations: map[string]string{"f1": "loc"},
		contents:  map[string][]byte{"loc": []byte("data")},
	}

	// A regular file where a parent directory should be.
	_, err := NewFetcher(src).Fetch(context.Background(), "f1", filepath.Join(blocker, "out.bin"))
	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"/abs/path/name.txt", "name.txt"},
		{`C:\Users\me\doc.docx`, "doc.docx"},
		{"  spaced.txt  ", "spaced.txt"},
		{"..", ""},
		{".", ""},
		{"", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFileName(tt.in))
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "***", MaskSecret("short"))
	assert.Equal(t, "1234***wxyz", MaskSecret("1234567890:abcdwxyz"))
}
