package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/chunking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	output []byte
	err    error
	calls  int
}

func (m *mockRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	m.calls++
	return m.output, m.err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestExtract_TextIsSinglePage(t *testing.T) {
	path := writeFile(t, "notes.md", []byte("# Title\n\nThe sky is blue.\n"))
	e := New(logger.NewNopLogger())

	res, err := e.Extract(context.Background(), path, ".MD")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nThe sky is blue.\n", res.Text)
	assert.Equal(t, []chunking.Page{{Number: 1, Text: res.Text}}, res.Pages)
	assert.Equal(t, 1, res.TotalPages())
	assert.Equal(t, 4, res.Metadata["line_count"])
}

func TestExtract_Errors(t *testing.T) {
	e := New(logger.NewNopLogger())
	ctx := context.Background()

	_, err := e.Extract(ctx, "whatever.docx", ".docx")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = e.Extract(ctx, filepath.Join(t.TempDir(), "missing.txt"), ".txt")
	assert.ErrorIs(t, err, ErrExtraction)

	bad := writeFile(t, "latin1.txt", []byte{0xff, 0xfe, 'a'})
	_, err = e.Extract(ctx, bad, ".txt")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestExtract_PDFFallsBackToTool(t *testing.T) {
	runner := &mockRunner{output: []byte("first page\fsecond page\f")}
	e := New(logger.NewNopLogger(), WithRunner(runner))
	e.primary = func(context.Context, string) ([]chunking.Page, error) {
		return nil, errors.New("xref table corrupt")
	}

	res, err := e.Extract(context.Background(), "report.pdf", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, []chunking.Page{{Number: 1, Text: "first page"}, {Number: 2, Text: "second page"}}, res.Pages)
	assert.Equal(t, 2, res.Metadata["total_pages"])
	assert.Equal(t, "--- Page 1 ---\n\nfirst page\n\n--- Page 2 ---\n\nsecond page", res.Text)
}

func TestExtract_PDFPrimarySkipsTool(t *testing.T) {
	runner := &mockRunner{}
	e := New(logger.NewNopLogger(), WithRunner(runner))
	e.primary = func(context.Context, string) ([]chunking.Page, error) {
		return []chunking.Page{{Number: 1, Text: "native"}}, nil
	}

	res, err := e.Extract(context.Background(), "report.pdf", ".pdf")
	require.NoError(t, err)
	assert.Zero(t, runner.calls)
	assert.Equal(t, 1, res.TotalPages())
}

func TestExtract_BothParsersFail(t *testing.T) {
	runner := &mockRunner{err: errors.New("pdftotext crashed")}
	e := New(logger.NewNopLogger(), WithRunner(runner))
	e.primary = func(context.Context, string) ([]chunking.Page, error) {
		return nil, errors.New("not a pdf")
	}

	_, err := e.Extract(context.Background(), "broken.pdf", ".pdf")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestReadPDFNative_RejectsGarbage(t *testing.T) {
	path := writeFile(t, "fake.pdf", []byte("definitely not a pdf"))
	_, err := readPDFNative(context.Background(), path)
	assert.Error(t, err)
}
