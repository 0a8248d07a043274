package producer

import (
	"bytes"
	"context"
	"io"
	"mime"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/indicator-cli/internal/fetcher"
	"github.com/sells-group/indicator-cli/internal/ocr"
)

// ErrNoExtractor is returned for PDF sources when no OCR extractor is set.
var ErrNoExtractor = eris.New("document: no PDF extractor configured")

// skippedElements never contribute text.
var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"nav":    true,
	"footer": true,
}

// Document is the plain text of one source.
type Document struct {
	URL  string
	Text string
	PDF  bool
}

// Retriever turns a source URL into plain text. PDFs are downloaded to a
// temp file and handed to the OCR extractor; everything else is treated as
// an HTML page.
type Retriever struct {
	fetcher fetcher.Fetcher
	ocr     ocr.Extractor
	tempDir string
	log     *zap.Logger
}

// NewRetriever creates a Retriever. tempDir may be empty to use the system
// default.
func NewRetriever(f fetcher.Fetcher, ex ocr.Extractor, tempDir string, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{fetcher: f, ocr: ex, tempDir: tempDir, log: log}
}

// Text retrieves url and returns its text content.
func (r *Retriever) Text(ctx context.Context, url string) (*Document, error) {
	if IsPDF(url) {
		text, err := r.pdfText(ctx, url)
		if err != nil {
			return nil, err
		}
		return &Document{URL: url, Text: text, PDF: true}, nil
	}

	page, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "document: fetch %s", url)
	}
	text, err := PageText(page.Body, page.ContentType)
	if err != nil {
		return nil, eris.Wrapf(err, "document: parse %s", url)
	}
	r.log.Debug("document: page text extracted",
		zap.String("url", url),
		zap.Int("chars", len(text)),
	)
	return &Document{URL: url, Text: text}, nil
}

func (r *Retriever) pdfText(ctx context.Context, url string) (string, error) {
	if r.ocr == nil {
		return "", ErrNoExtractor
	}

	tmp, err := os.CreateTemp(r.tempDir, "source-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "document: create temp file")
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path) //nolint:errcheck

	n, err := r.fetcher.DownloadToFile(ctx, url, path)
	if err != nil {
		return "", eris.Wrapf(err, "document: download %s", url)
	}

	text, err := r.ocr.ExtractText(ctx, path)
	if err != nil {
		return "", eris.Wrapf(err, "document: extract %s", url)
	}
	r.log.Debug("document: pdf text extracted",
		zap.String("url", url),
		zap.Int64("bytes", n),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

// PageText decodes an HTML body using the charset declared in contentType
// and flattens it to space-separated text.
func PageText(body []byte, contentType string) (string, error) {
	reader, err := decodeCharset(body, contentType)
	if err != nil {
		return "", err
	}
	return HTMLText(reader)
}

func decodeCharset(body []byte, contentType string) (io.Reader, error) {
	if contentType == "" {
		return bytes.NewReader(body), nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return bytes.NewReader(body), nil
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return bytes.NewReader(body), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "document: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(bytes.NewReader(body)), nil
}

// HTMLText returns the visible text of an HTML document, skipping scripts,
// styles, navigation and footers. Text nodes are trimmed and joined with a
// single space.
func HTMLText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", eris.Wrap(err, "document: parse html")
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
		case html.TextNode:
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " "), nil
}
