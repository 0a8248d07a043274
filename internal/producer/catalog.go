// Package producer gathers extraction candidates for an indicator from
// official statistics sources: it picks the sources, retrieves their text and
// runs the model-based and pattern-based extractors over it.
package producer

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/indicator-cli/internal/resolve"
)

// DefaultSource is used when no catalogue keyword matches an indicator.
const DefaultSource = "https://www.ecuadorencifras.gob.ec"

const inecDocs = "https://www.ecuadorencifras.gob.ec/documentos/web-inec/"

var builtinSources = map[string][]string{
	"pobreza multidimensional": {
		inecDocs + "POBREZA/2024/Diciembre/202412_PobrezayDesigualdad.pdf",
	},
	"pobreza extrema por ingresos": {
		inecDocs + "POBREZA/2025/Junio/202506_Boletin_pobreza_ENEMDU.pdf",
		inecDocs + "POBREZA/2024/Diciembre/202412_PobrezayDesigualdad.pdf",
	},
	"pobreza extrema": {
		inecDocs + "POBREZA/2025/Junio/202506_Boletin_pobreza_ENEMDU.pdf",
		inecDocs + "POBREZA/2024/Diciembre/202412_PobrezayDesigualdad.pdf",
	},
	"empleo adecuado": {
		"https://www.ecuadorencifras.gob.ec/empleo-septiembre-2025/",
	},
	"desempleo": {
		inecDocs + "EMPLEO/2025/Septiembre/Trimestre_julio-septiembre_2025_Mercado_Laboral.pdf",
	},
	"inversion extranjera directa": {
		"https://www.produccion.gob.ec/wp-content/uploads/2025/08/BOLETIN-DE-CIFRAS-DE-INVERSIONES-I-TRIMESTRE-2025.pdf",
	},
	"inversion extranjera": {
		"https://www.produccion.gob.ec/wp-content/uploads/2025/08/BOLETIN-DE-CIFRAS-DE-INVERSIONES-I-TRIMESTRE-2025.pdf",
	},
	"mortalidad por suicidio": {
		inecDocs + "Poblacion_y_Demografia/Defunciones_Generales_2023/Boletin_tecnico_EDG_2023.pdf",
	},
	"siniestros de transito": {
		"https://confirmado.net/tema-accidentes-viales-en-ecuador-dejan-4-000-muertes-al-ano-y-sin-freno-a-la-vista/",
	},
	"mortalidad": {
		"https://www.ecuadorencifras.gob.ec/defunciones-generales/",
		"https://www.ant.gob.ec/",
	},
	"internet": {
		inecDocs + "Estadisticas_Sociales/TIC/2023/230913_Boletin_Tecnico_Multiprop_TIC_2023_VF.pdf",
		"https://www.ecuadorencifras.gob.ec/tecnologias-de-la-informacion-y-comunicacion-tic/",
	},
	"fibra optica": {
		"https://www.arcotel.gob.ec/estadisticas/",
		"https://www.ecuadorencifras.gob.ec/tecnologias-de-la-informacion-y-comunicacion-tic/",
	},
	"desnutricion": {"https://www.ecuadorencifras.gob.ec/encuesta-nacional-de-desnutricion-infantil-endi/"},
	"homicidios":   {"https://www.ministeriodelinterior.gob.ec/cifras-de-seguridad/"},
	"seguridad":    {"https://www.ministeriodelinterior.gob.ec/"},
	"educacion":    {"https://www.ecuadorencifras.gob.ec/estadisticas-educativas/"},
	"salud":        {"https://www.salud.gob.ec/estadisticas-de-salud-2/"},
	"pib":          {"https://www.bce.fin.ec/index.php/boletines-de-prensa-archivo/item/1421-la-economia-ecuatoriana-crecio"},
}

type catalogEntry struct {
	key  string
	urls []string
}

// Catalog maps indicator keywords to the official sources that publish them.
type Catalog struct {
	entries  []catalogEntry
	fallback []string
}

// catalogFile is the on-disk shape of a catalogue override.
type catalogFile struct {
	Default []string            `yaml:"default"`
	Sources map[string][]string `yaml:"sources"`
}

// DefaultCatalog returns the built-in catalogue.
func DefaultCatalog() *Catalog {
	return newCatalog(builtinSources, nil)
}

// LoadCatalog reads a YAML catalogue and layers it over the built-in one.
// Keys in the file replace built-in keys with the same folded name. An empty
// path returns the built-in catalogue.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse %s", path)
	}

	merged := make(map[string][]string, len(builtinSources)+len(file.Sources))
	for k, v := range builtinSources {
		merged[k] = v
	}
	for k, v := range file.Sources {
		if len(v) == 0 {
			continue
		}
		merged[resolve.Fold(strings.TrimSpace(k))] = v
	}
	return newCatalog(merged, file.Default), nil
}

func newCatalog(sources map[string][]string, fallback []string) *Catalog {
	entries := make([]catalogEntry, 0, len(sources))
	for k, urls := range sources {
		entries = append(entries, catalogEntry{key: resolve.Fold(k), urls: urls})
	}
	// Longest key first so "pobreza extrema por ingresos" wins over
	// "pobreza extrema".
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].key) != len(entries[j].key) {
			return len(entries[i].key) > len(entries[j].key)
		}
		return entries[i].key < entries[j].key
	})
	if len(fallback) == 0 {
		fallback = []string{DefaultSource}
	}
	return &Catalog{entries: entries, fallback: fallback}
}

// Sources returns the source URLs for an indicator name, and the matched
// keyword ("" when the fallback was used).
func (c *Catalog) Sources(name string) ([]string, string) {
	folded := resolve.Fold(name)
	for _, e := range c.entries {
		if strings.Contains(folded, e.key) {
			return append([]string(nil), e.urls...), e.key
		}
	}
	return append([]string(nil), c.fallback...), ""
}

// IsPDF reports whether a source URL points at a PDF document.
func IsPDF(url string) bool {
	return strings.HasSuffix(strings.ToLower(url), ".pdf")
}
