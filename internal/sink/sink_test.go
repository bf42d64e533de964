package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Quartalszahlen Q2", "Quartalszahlen Q2"},
		{"a/b\\c:d*e?f", "abcdef"},
		{"  spaced   out  ", "spaced out"},
		{"report_2026-08.pdf", "report_2026-08.pdf"},
		{"///", "untitled_file"},
		{"", "untitled_file"},
		{"über äöü", "ber"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Sanitize(tc.in), "input %q", tc.in)
	}
}

func TestSanitizeIsDeterministic(t *testing.T) {
	in := "Some: Subject / With * Noise"
	first := Sanitize(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Sanitize(in))
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("a", 500)
	got := Sanitize(long)
	assert.LessOrEqual(t, len(got), 200)
}

func TestBodyFilenameCarriesID(t *testing.T) {
	got := BodyFilename("Weekly Update", "42", ".txt")
	assert.Equal(t, "Weekly Update_42.txt", got)
}

func TestAttachmentFilenamesAreCollisionFree(t *testing.T) {
	// Same original name, different ordinal or message id: all distinct.
	a := AttachmentFilename("report.pdf", "m1", 0)
	b := AttachmentFilename("report.pdf", "m1", 1)
	c := AttachmentFilename("report.pdf", "m2", 0)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasSuffix(a, ".pdf"), "extension preserved: %q", a)
}

func TestAttachmentFilenameDropsOverlongExtension(t *testing.T) {
	got := AttachmentFilename("archive.verylongext", "m1", 0)
	assert.False(t, strings.HasSuffix(got, ".verylongext"))
}

func TestBodyPathCreatesBodiesDir(t *testing.T) {
	base := t.TempDir()
	path, err := BodyPath(base, "x_1.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, BodiesDir, "x_1.txt"), path)

	info, err := os.Stat(filepath.Join(base, BodiesDir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestAttachmentPathCreatesAttachmentsDir(t *testing.T) {
	base := t.TempDir()
	path, err := AttachmentPath(base, "a_1_0.pdf")
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, []byte("payload")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
