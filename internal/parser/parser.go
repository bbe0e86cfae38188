package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-enry/go-enry/v2"
	"github.com/xuri/excelize/v2"

	"askmynotes/internal/domain"
)

// DefaultMaxBytes is the upload size limit.
const DefaultMaxBytes = 10 << 20

// ErrFileTooLarge is returned when an upload exceeds the size limit.
var ErrFileTooLarge = domain.NewValidationError("file exceeds the upload size limit")

// Parser extracts per-page text from note files. Plain text and markdown
// become one page, PDF pages are split on form feeds, HTML is reduced to
// its readable blocks and every spreadsheet sheet becomes one page.
type Parser struct {
	pdfToText string
	maxBytes  int64
	logger    *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithPDFToText sets the pdftotext binary used for PDFs.
func WithPDFToText(path string) Option {
	return func(p *Parser) {
		if path != "" {
			p.pdfToText = path
		}
	}
}

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// WithLogger sets the parser logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{
		pdfToText: "pdftotext",
		maxBytes:  DefaultMaxBytes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Supported reports whether the extension of name has a parser.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown", ".pdf", ".html", ".htm", ".xlsx":
		return true
	}
	return false
}

func (p *Parser) Parse(ctx context.Context, file io.Reader, originalName string) (*domain.ParsedDocument, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !Supported(originalName) {
		return nil, fmt.Errorf("%w: %q (supported: .txt, .md, .pdf, .html, .xlsx)", domain.ErrUnsupportedFormat, ext)
	}

	data, err := io.ReadAll(io.LimitReader(file, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", originalName, err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrFileTooLarge
	}

	var pages []domain.Page
	switch ext {
	case ".txt", ".md", ".markdown":
		pages, err = parseText(data)
	case ".pdf":
		pages, err = p.parsePDF(ctx, data)
	case ".html", ".htm":
		pages, err = parseHTML(data)
	case ".xlsx":
		pages, err = parseXLSX(data)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Debug("file parsed", "file", originalName, "bytes", len(data), "pages", len(pages))
	return &domain.ParsedDocument{Pages: pages}, nil
}

func parseText(data []byte) ([]domain.Page, error) {
	if enry.IsBinary(data) {
		return nil, fmt.Errorf("%w: file looks binary", domain.ErrUnsupportedFormat)
	}
	return []domain.Page{{Number: 1, Text: string(data)}}, nil
}

func (p *Parser) parsePDF(ctx context.Context, data []byte) ([]domain.Page, error) {
	bin, err := exec.LookPath(p.pdfToText)
	if err != nil {
		return nil, fmt.Errorf("%w: pdf support requires %s", domain.ErrUnsupportedFormat, p.pdfToText)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-enc", "UTF-8", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: pdftotext: %s", domain.ErrUnsupportedFormat, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("run pdftotext: %w", err)
	}
	return splitPDFText(stdout.String()), nil
}

// splitPDFText splits extracted text on form feeds. Blank pages are
// dropped and the survivors renumbered; text without any non-blank page
// comes back as a single page.
func splitPDFText(text string) []domain.Page {
	var pages []domain.Page
	for _, raw := range strings.Split(text, "\f") {
		t := strings.TrimSpace(raw)
		if t == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: len(pages) + 1, Text: t})
	}
	if len(pages) == 0 {
		return []domain.Page{{Number: 1, Text: text}}
	}
	return pages
}

var blankLinesRe = regexp.MustCompile(`[ \t]+\n`)

func parseHTML(data []byte) ([]domain.Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	sel := doc.Find("main, article")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	var parts []string
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title)
	}
	sel.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, td").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		parts = append(parts, strings.TrimSpace(sel.Text()))
	}
	text := strings.ReplaceAll(strings.Join(parts, "\n"), "\r", "")
	text = blankLinesRe.ReplaceAllString(text, "\n")
	return []domain.Page{{Number: 1, Text: text}}, nil
}

func parseXLSX(data []byte) ([]domain.Page, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open spreadsheet: %v", domain.ErrUnsupportedFormat, err)
	}
	defer f.Close()

	var pages []domain.Page
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		var sb strings.Builder
		sb.WriteString(sheet)
		sb.WriteString("\n")
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: sb.String()})
	}
	return pages, nil
}
