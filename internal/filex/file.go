// Package filex has the local file helpers: directory setup for on-device
// state, upload name sanitizing and content type detection.
package filex

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

// DefaultMimeType is used when nothing better can be detected.
const DefaultMimeType = "application/octet-stream"

// EnsurePrivateDir creates dir (and parents) readable by the owner only.
// Relative paths are resolved against the working directory.
func EnsurePrivateDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}
	if err := os.Chmod(abs, 0o700); err != nil {
		return "", fmt.Errorf("chmod %s: %w", abs, err)
	}
	return abs, nil
}

// SanitizeFileName keeps ASCII letters, digits, '.', '-' and '_' and
// replaces every other rune with '_'. Path separators never survive.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// DetectMimeType guesses from the extension first and sniffs head
// (the first bytes of the content) otherwise.
func DetectMimeType(name string, head []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
		return t
	}
	if len(head) > 0 {
		t := http.DetectContentType(head)
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	return DefaultMimeType
}

// OpenLocal describes the file at path as an upload candidate.
func OpenLocal(path string) (models.NewFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.NewFile{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return models.NewFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.IsDir() {
		return models.NewFile{}, fmt.Errorf("%s is a directory", path)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return models.NewFile{}, fmt.Errorf("read %s: %w", path, err)
	}

	return models.NewFile{
		Name:     filepath.Base(path),
		MimeType: DetectMimeType(path, head[:n]),
		Size:     fi.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
