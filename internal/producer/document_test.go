package producer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/indicator-cli/internal/fetcher"
)

type stubExtractor struct {
	text    string
	err     error
	gotPath string
	existed bool
}

func (s *stubExtractor) ExtractText(_ context.Context, path string) (string, error) {
	s.gotPath = path
	_, err := os.Stat(path)
	s.existed = err == nil
	return s.text, s.err
}

func newTestHTTPFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:     5 * time.Second,
		MaxRetries:  1,
		HostRPS:     100,
		BackoffBase: time.Millisecond,
	})
}

func TestHTMLText(t *testing.T) {
	page := `<html><head><title>INEC</title><style>.a{color:red}</style></head>
<body><nav>Inicio Menu</nav>
<p>La pobreza fue de <b>25,2%</b> en junio</p>
<script>var x = 1;</script>
<footer>Derechos reservados</footer></body></html>`

	text, err := HTMLText(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "INEC La pobreza fue de 25,2% en junio", text)
}

func TestPageText_Charset(t *testing.T) {
	body := []byte("<p>Poblaci\xf3n ocupada</p>")
	text, err := PageText(body, "text/html; charset=ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "Población ocupada", text)

	text, err = PageText([]byte("<p>Población</p>"), "text/html; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Población", text)

	text, err = PageText([]byte("<p>sin tipo</p>"), "")
	require.NoError(t, err)
	assert.Equal(t, "sin tipo", text)

	_, err = PageText(body, "text/html; charset=x-unknown-charset")
	assert.Error(t, err)
}

func TestRetriever_HTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<body><p>Empleo adecuado 35,9%</p></body>"))
	}))
	defer srv.Close()

	r := NewRetriever(newTestHTTPFetcher(), nil, "", nil)
	doc, err := r.Text(context.Background(), srv.URL+"/empleo/")
	require.NoError(t, err)
	assert.False(t, doc.PDF)
	assert.Equal(t, "Empleo adecuado 35,9%", doc.Text)
}

func TestRetriever_PDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	ex := &stubExtractor{text: "Boletín técnico 2025"}
	dir := t.TempDir()
	r := NewRetriever(newTestHTTPFetcher(), ex, dir, nil)

	doc, err := r.Text(context.Background(), srv.URL+"/boletin.pdf")
	require.NoError(t, err)
	assert.True(t, doc.PDF)
	assert.Equal(t, "Boletín técnico 2025", doc.Text)
	assert.True(t, ex.existed, "pdf should exist while extracting")
	assert.True(t, strings.HasPrefix(ex.gotPath, dir))

	_, statErr := os.Stat(ex.gotPath)
	assert.True(t, os.IsNotExist(statErr), "temp pdf should be removed")
}

func TestRetriever_PDFErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	r := NewRetriever(newTestHTTPFetcher(), nil, t.TempDir(), nil)
	_, err := r.Text(context.Background(), srv.URL+"/a.pdf")
	assert.True(t, eris.Is(err, ErrNoExtractor))

	r = NewRetriever(newTestHTTPFetcher(), &stubExtractor{err: errors.New("no text layer")}, t.TempDir(), nil)
	_, err = r.Text(context.Background(), srv.URL+"/a.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text layer")
}

func TestRetriever_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := NewRetriever(newTestHTTPFetcher(), nil, "", nil)
	_, err := r.Text(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document: fetch")
}
