// Package extract turns an uploaded file into page-addressed text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/chunking"

	"github.com/ledongthuc/pdf"
)

const (
	TypePDF      = ".pdf"
	TypeText     = ".txt"
	TypeMarkdown = ".md"
)

var (
	ErrExtraction      = errors.New("text extraction failed")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")
)

// CommandRunner executes an external program. Tests swap it out.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Result is the extracted text plus per-page text when the format has pages.
type Result struct {
	Text     string
	Pages    []chunking.Page
	Metadata map[string]interface{}
}

func (r *Result) TotalPages() int {
	return len(r.Pages)
}

type pageReader func(ctx context.Context, path string) ([]chunking.Page, error)

type Extractor struct {
	logger   logger.ILogger
	runner   CommandRunner
	primary  pageReader
	fallback pageReader
}

type Option func(*Extractor)

func WithRunner(runner CommandRunner) Option {
	return func(e *Extractor) {
		e.runner = runner
	}
}

func New(log logger.ILogger, opts ...Option) *Extractor {
	e := &Extractor{logger: log, runner: ExecRunner{}}
	for _, opt := range opts {
		opt(e)
	}
	e.primary = readPDFNative
	e.fallback = e.readPDFWithTool
	return e
}

// Extract dispatches on the lowercased file extension including the dot.
func (e *Extractor) Extract(ctx context.Context, path, fileType string) (*Result, error) {
	switch strings.ToLower(fileType) {
	case TypePDF:
		return e.extractPDF(ctx, path)
	case TypeText, TypeMarkdown:
		return extractText(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (*Result, error) {
	pages, err := e.primary(ctx, path)
	if err != nil {
		e.logger.Warn(logger.ModuleIngest, "Primary PDF parser failed, using pdftotext", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		pages, err = e.fallback(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
	}

	var sb strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&sb, "\n\n--- Page %d ---\n\n%s", p.Number, p.Text)
	}
	return &Result{
		Text:  strings.TrimSpace(sb.String()),
		Pages: pages,
		Metadata: map[string]interface{}{
			"total_pages": len(pages),
		},
	}, nil
}

func extractText(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8", ErrExtraction)
	}
	text := string(data)
	return &Result{
		Text:  text,
		Pages: []chunking.Page{{Number: 1, Text: text}},
		Metadata: map[string]interface{}{
			"total_pages": 1,
			"line_count":  strings.Count(text, "\n") + 1,
		},
	}, nil
}

// readPDFNative uses the pure Go parser. It panics on some malformed files,
// which is reported as an error.
func readPDFNative(_ context.Context, path string) (pages []chunking.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := r.NumPage()
	if total == 0 {
		return nil, errors.New("pdf has no pages")
	}
	pages = make([]chunking.Page, 0, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, chunking.Page{Number: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, chunking.Page{Number: i, Text: text})
	}
	return pages, nil
}

// readPDFWithTool shells out to pdftotext, which separates pages with form feeds.
func (e *Extractor) readPDFWithTool(ctx context.Context, path string) ([]chunking.Page, error) {
	if _, ok := e.runner.(ExecRunner); ok {
		if err := CheckAvailable(); err != nil {
			return nil, err
		}
	}
	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	raw := strings.Split(string(out), "\f")
	// pdftotext terminates the last page with a form feed too
	if len(raw) > 1 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	pages := make([]chunking.Page, len(raw))
	for i, text := range raw {
		pages[i] = chunking.Page{Number: i + 1, Text: text}
	}
	return pages, nil
}

func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}
