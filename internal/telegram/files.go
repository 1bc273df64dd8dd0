package telegram

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/keepmind9/tgchannel/internal/logger"
	"github.com/sirupsen/logrus"
)

// FileSource resolves file handles and reads the stored bytes. *Client
// implements it.
type FileSource interface {
	ResolveFileLocation(ctx context.Context, fileID string) (string, error)
	ReadFile(ctx context.Context, location string) ([]byte, error)
}

// Fetcher persists attachments to local disk.
type Fetcher struct {
	source FileSource
}

// NewFetcher creates a Fetcher reading from source.
func NewFetcher(source FileSource) *Fetcher {
	return &Fetcher{source: source}
}

// Fetch resolves fileID, reads the full content and only then writes it to
// destination, creating parent directories as needed. On failure the
// destination is left as it was.
func (f *Fetcher) Fetch(ctx context.Context, fileID, destination string) (string, error) {
	location, err := f.source.ResolveFileLocation(ctx, fileID)
	if err != nil {
		return "", err
	}

	data, err := f.source.ReadFile(ctx, location)
	if err != nil {
		return "", err
	}

	if err := writeFileAtomic(destination, data); err != nil {
		return "", transportErr("download", err, "cannot store file at %s", destination)
	}

	logger.WithFields(logrus.Fields{
		"file_id":     fileID,
		"destination": destination,
		"bytes":       len(data),
	}).Debug("telegram-file-downloaded")
	return destination, nil
}

// writeFileAtomic writes to a sibling temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// SafeFileName strips any directory components from a provider-supplied file
// name. It returns "" when nothing usable is left.
func SafeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(strings.TrimSpace(name))
	switch base {
	case ".", "..", "/", "":
		return ""
	}
	return base
}
