package document

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	out, err := Extract("notes.TXT", []byte("Magandang umaga po."))
	require.NoError(t, err)
	assert.Equal(t, "Magandang umaga po.", out)
}

func TestExtractTextLatin1Fallback(t *testing.T) {
	// "café" encoded as ISO-8859-1.
	out, err := Extract("menu.txt", []byte{'c', 'a', 'f', 0xe9})
	require.NoError(t, err)
	assert.Equal(t, "café", out)
}

func TestExtractDOCX(t *testing.T) {
	data := docx(t, `<w:p><w:r><w:t>First </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Second</w:t><w:tab/><w:t>one.</w:t></w:r></w:p>`)

	out, err := Extract("report.docx", data)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\nSecond\tone.", out)
}

func TestExtractDOCXWithoutDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Extract("empty.docx", buf.Bytes())
	assert.Error(t, err)
}

func TestExtractCorruptFiles(t *testing.T) {
	_, err := Extract("broken.docx", []byte("not a zip"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Extract("broken.pdf", []byte("not a pdf"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractUnsupported(t *testing.T) {
	for _, name := range []string{"slides.pptx", "image.png", "noextension"} {
		_, err := Extract(name, []byte("x"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat, name)
		assert.ErrorContains(t, err, ".txt, .docx, .pdf", name)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", DefaultMaxChars))
	assert.Equal(t, strings.Repeat("a", 1000), Truncate(strings.Repeat("a", 1500), DefaultMaxChars))
	assert.Equal(t, "ñañ", Truncate("ñañaña", 3), "cuts on characters, not bytes")
	assert.Equal(t, "keep", Truncate("keep", 0))
}
