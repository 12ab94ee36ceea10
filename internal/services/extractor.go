package services

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var (
	ErrNoText          = errors.New("no text content found in document")
	ErrUnsupportedFile = errors.New("unsupported file type")
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

type TextExtractor interface {
	ExtractText(data []byte, filename string) (*ResumeText, error)
}

type ResumeText struct {
	Text       string
	PageCount  int
	PagesRead  int
	SourceFile string
	MimeType   string
}

type textExtractor struct {
	pageLimit int
}

// NewTextExtractor reads at most pageLimit pages of each PDF; pageLimit <= 0 reads every page.
func NewTextExtractor(pageLimit int) TextExtractor {
	return &textExtractor{pageLimit: pageLimit}
}

// MimeTypeFor maps a résumé file name to the MIME type the extractor understands.
func MimeTypeFor(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return MimePDF, nil
	case ".docx":
		return MimeDOCX, nil
	case ".txt":
		return MimeText, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(filename))
	}
}

func (e *textExtractor) ExtractText(data []byte, filename string) (*ResumeText, error) {
	mime, err := MimeTypeFor(filename)
	if err != nil {
		return nil, err
	}

	result := &ResumeText{SourceFile: filename, MimeType: mime}

	switch mime {
	case MimePDF:
		pages, total, err := e.readPDFPages(data)
		if err != nil {
			return nil, err
		}
		result.PageCount = total
		result.PagesRead = len(pages)
		result.Text = JoinPages(pages)
	case MimeDOCX:
		text, err := readDOCX(data)
		if err != nil {
			return nil, err
		}
		result.PageCount = 1
		result.PagesRead = 1
		result.Text = text
	case MimeText:
		result.PageCount = 1
		result.PagesRead = 1
		result.Text = string(data)
	}

	result.Text = CleanText(strings.ToValidUTF8(result.Text, ""))
	if result.Text == "" {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoText)
	}

	return result, nil
}

func (e *textExtractor) readPDFPages(data []byte) ([]string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPage := r.NumPage()
	last := totalPage
	if e.pageLimit > 0 && e.pageLimit < last {
		last = e.pageLimit
	}

	var pages []string
	for pageIndex := 1; pageIndex <= last; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A broken page should not sink the whole résumé.
			continue
		}

		pages = append(pages, text)
	}

	return pages, totalPage, nil
}

func readDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return documentXMLText(doc.Editable().GetContent())
}

// documentXMLText pulls the character data out of a WordprocessingML body, one line per paragraph.
func documentXMLText(content string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(content))

	var b strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				b.WriteString(" ")
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteString("\n")
			}
		}
	}

	return b.String(), nil
}

// JoinPages concatenates the non-empty page texts with a single space.
func JoinPages(pages []string) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// CleanText trims every line and drops the empty ones.
func CleanText(text string) string {
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
