package producer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Sources(t *testing.T) {
	cat := DefaultCatalog()

	tests := []struct {
		name        string
		indicator   string
		wantKeyword string
		wantCount   int
	}{
		{"longest key wins", "Tasa de pobreza extrema por ingresos", "pobreza extrema por ingresos", 2},
		{"shorter key", "Pobreza extrema rural", "pobreza extrema", 2},
		{"accents folded", "Tasa de mortalidad por siniestros de tránsito", "siniestros de transito", 1},
		{"mortality by suicide", "Tasa de Mortalidad por Suicidio", "mortalidad por suicidio", 1},
		{"generic mortality", "Mortalidad materna", "mortalidad", 2},
		{"investment", "Inversión Extranjera Directa", "inversion extranjera directa", 1},
		{"gdp", "Crecimiento del PIB", "pib", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urls, keyword := cat.Sources(tt.indicator)
			assert.Equal(t, tt.wantKeyword, keyword)
			assert.Len(t, urls, tt.wantCount)
		})
	}
}

func TestCatalog_Fallback(t *testing.T) {
	urls, keyword := DefaultCatalog().Sources("Índice de felicidad")
	assert.Empty(t, keyword)
	assert.Equal(t, []string{DefaultSource}, urls)
}

func TestCatalog_SourcesReturnsCopy(t *testing.T) {
	cat := DefaultCatalog()
	urls, _ := cat.Sources("desempleo juvenil")
	urls[0] = "mutated"

	again, _ := cat.Sources("desempleo juvenil")
	assert.NotEqual(t, "mutated", again[0])
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default:
  - https://example.org/portal
sources:
  Inflación:
    - https://example.org/ipc.pdf
  desempleo:
    - https://example.org/empleo.pdf
  vacio: []
`), 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)

	urls, keyword := cat.Sources("Tasa de inflación anual")
	assert.Equal(t, "inflacion", keyword)
	assert.Equal(t, []string{"https://example.org/ipc.pdf"}, urls)

	urls, _ = cat.Sources("Tasa de desempleo")
	assert.Equal(t, []string{"https://example.org/empleo.pdf"}, urls)

	urls, _ = cat.Sources("Homicidios intencionales")
	assert.Equal(t, []string{"https://www.ministeriodelinterior.gob.ec/cifras-de-seguridad/"}, urls)

	urls, keyword = cat.Sources("vacio")
	assert.Empty(t, keyword)
	assert.Equal(t, []string{"https://example.org/portal"}, urls)
}

func TestLoadCatalog_Errors(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)
	assert.NotNil(t, cat)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sources: [unclosed"), 0o644))
	_, err = LoadCatalog(bad)
	assert.Error(t, err)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("https://x.gob.ec/Boletin.PDF"))
	assert.True(t, IsPDF("https://x.gob.ec/a/b.pdf"))
	assert.False(t, IsPDF("https://x.gob.ec/empleo/"))
	assert.False(t, IsPDF(""))
}
