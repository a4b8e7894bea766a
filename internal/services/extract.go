package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/dslipak/pdf"
)

// MaxFileSize is the hard limit for text extraction (50MB)
const MaxFileSize = 50 * 1024 * 1024

// supportedExtensions mirrors the file types accepted by the upload endpoint
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".html": true,
	".htm":  true,
	".rtf":  true,
	".tex":  true,
	".odt":  true,
	".doc":  true,
	".docx": true,
}

// SupportedFormat reports whether the filename has an ingestable extension
func SupportedFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedExtensions[ext]
}

var (
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	rtfCtrlRe = regexp.MustCompile(`\\[a-z]+-?\d*[ ]?|[{}]`)
)

// ExtractText pulls plain text out of an uploaded document
func ExtractText(filename string, data []byte) (string, error) {
	if len(data) > MaxFileSize {
		return "", fmt.Errorf("file exceeds size limit of 50MB")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return extractPDF(data)
	case ".html", ".htm":
		return extractHTML(data), nil
	case ".rtf":
		return extractRTF(data), nil
	case ".docx":
		return extractZipXML(data, "word/document.xml")
	case ".odt":
		return extractZipXML(data, "content.xml")
	case ".doc":
		return extractPrintable(data), nil
	case ".txt", ".md", ".tex":
		return string(data), nil
	default:
		return "", fmt.Errorf("no extractor for %s", ext)
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	return buf.String(), nil
}

func extractHTML(data []byte) string {
	text := tagRe.ReplaceAllString(string(data), " ")
	return strings.Join(strings.Fields(text), " ")
}

func extractRTF(data []byte) string {
	text := rtfCtrlRe.ReplaceAllString(string(data), "")
	return strings.Join(strings.Fields(text), " ")
}

// extractZipXML reads the main content part of a zip-packaged document
// (.docx and .odt) and strips the markup
func extractZipXML(data []byte, part string) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open document archive: %w", err)
	}

	for _, f := range reader.File {
		if f.Name != part {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", part, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", part, err)
		}
		// close tags often abut the next run of text, keep a space between
		text := strings.ReplaceAll(string(content), "</w:p>", " ")
		text = strings.ReplaceAll(text, "</text:p>", " ")
		text = tagRe.ReplaceAllString(text, "")
		return strings.Join(strings.Fields(text), " "), nil
	}

	return "", fmt.Errorf("document archive has no %s", part)
}

// extractPrintable is a best-effort fallback for legacy binary formats:
// keep runs of printable characters long enough to look like prose
func extractPrintable(data []byte) string {
	var runs []string
	var current strings.Builder

	flush := func() {
		if current.Len() >= 16 {
			runs = append(runs, current.String())
		}
		current.Reset()
	}

	for _, r := range string(data) {
		if unicode.IsPrint(r) && r != unicode.ReplacementChar {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return strings.Join(runs, " ")
}
