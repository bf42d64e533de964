// Package sink writes sweep artifacts to the local filesystem. Message
// bodies go to <base>/Bodies, attachments to <base>/Attachments; filenames
// are sanitized and qualified with the message id (and an ordinal for
// attachments) so re-running a sweep never collides.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/littlecapa/finbox/internal/sweep"
)

const (
	// BodiesDir is the fixed subdirectory for message bodies.
	BodiesDir = "Bodies"
	// AttachmentsDir is the fixed subdirectory for attachment payloads.
	AttachmentsDir = "Attachments"

	maxNameLen   = 200
	fallbackName = "untitled_file"
)

// EnsureDir creates dir if missing. Idempotent.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return sweep.WrapError(sweep.KindStorage, err, "creating directory %q", dir)
	}
	return nil
}

// WriteFile writes data to path, mapping filesystem failures to storage
// errors.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return sweep.WrapError(sweep.KindStorage, err, "writing %q", path)
	}
	return nil
}

// Sanitize strips everything but alphanumerics, spaces and "._-", collapses
// whitespace runs, trims, and truncates to a bounded length. An empty result
// falls back to a fixed placeholder.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	clean := strings.TrimSpace(b.String())
	if clean == "" {
		return fallbackName
	}
	if len(clean) > maxNameLen {
		clean = clean[:maxNameLen]
	}
	return strings.Join(strings.Fields(clean), " ")
}

// BodyFilename builds the body filename from a sanitized title, the message
// id, and the desired extension (with leading dot).
func BodyFilename(title, id, ext string) string {
	return fmt.Sprintf("%s_%s%s", Sanitize(title), id, ext)
}

// AttachmentFilename builds the attachment filename from its original name,
// the message id, and the ordinal index within the message. The original
// extension is preserved when it is short enough to be a real one.
func AttachmentFilename(name, id string, ordinal int) string {
	ext := ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		if candidate := name[i+1:]; candidate != "" && len(candidate) <= 5 {
			ext = candidate
		}
	}
	clean := Sanitize(name)
	if ext != "" {
		return fmt.Sprintf("%s_%s_%d.%s", clean, id, ordinal, ext)
	}
	return fmt.Sprintf("%s_%s_%d", clean, id, ordinal)
}

// BodyPath ensures the Bodies directory exists and returns the target path
// for the given filename.
func BodyPath(basePath, filename string) (string, error) {
	dir := filepath.Join(basePath, BodiesDir)
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// AttachmentPath ensures the Attachments directory exists and returns the
// target path for the given filename.
func AttachmentPath(basePath, filename string) (string, error) {
	dir := filepath.Join(basePath, AttachmentsDir)
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}
