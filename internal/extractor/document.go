package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// MaxHTMLSize limits document input to 10MB to prevent memory exhaustion
const MaxHTMLSize = 10 * 1024 * 1024

// Document is a live, mutable HTML document.
type Document struct {
	doc       *goquery.Document
	mu        sync.RWMutex
	listeners []Listener
}

// Load parses HTML bytes, converting non UTF-8 input to UTF-8 first.
func Load(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("html content required")
	}
	if len(data) > MaxHTMLSize {
		return nil, fmt.Errorf("html exceeds maximum size of %d bytes", MaxHTMLSize)
	}

	reader := bytes.NewReader(data)
	if !utf8.Valid(data) {
		utf8Reader, err := charset.NewReader(reader, "text/html; charset="+detectCharset(data))
		if err == nil {
			return parse(utf8Reader)
		}
		reader.Reset(data)
	}
	return parse(reader)
}

// LoadString parses an HTML string.
func LoadString(s string) (*Document, error) {
	return Load([]byte(s))
}

// LoadFile parses an HTML file, rejecting content that is not markup or text.
func LoadFile(path string) (*Document, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	if !mtype.Is("text/html") && !mtype.Is("text/plain") {
		return nil, fmt.Errorf("unsupported content type %s", mtype.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Load(data)
}

// HTML renders the current state of the document.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Html()
}

// ElementByID resolves an element by its id attribute, or returns nil.
func (d *Document) ElementByID(id string) *goquery.Selection {
	if id == "" {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.elementByID(id)
}

func (d *Document) elementByID(id string) *goquery.Selection {
	sel := d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("id", "") == id
	}).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel
}

func parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	return &Document{doc: doc}, nil
}

// detectCharset detects the charset of raw HTML bytes
func detectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
