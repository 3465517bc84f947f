package catalog

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"fiducia/internal/domain/models"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// TypeLimits are the default constraints of one document type. A request row may
// override either field.
type TypeLimits struct {
	Libelle     string   `yaml:"libelle"`
	Formats     []string `yaml:"formats"`
	TailleMaxMo int      `yaml:"taille_max_mo"`
}

// Catalog holds the document-type catalogue loaded from the embedded YAML file.
type Catalog struct {
	types map[models.TypeDocument]TypeLimits
	mu    sync.RWMutex
}

// New creates a catalog and loads the embedded document-type file.
func New() (*Catalog, error) {
	c := &Catalog{types: make(map[models.TypeDocument]TypeLimits)}

	data, err := configFiles.ReadFile("config/document_types.yaml")
	if err != nil {
		return nil, fmt.Errorf("read document types: %w", err)
	}

	var file struct {
		Types map[string]TypeLimits `yaml:"types"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal document types: %w", err)
	}

	c.mu.Lock()
	for name, limits := range file.Types {
		c.types[models.TypeDocument(name)] = limits
	}
	c.mu.Unlock()

	return c, nil
}

// Limits returns the catalogue entry for a document type.
func (c *Catalog) Limits(t models.TypeDocument) (TypeLimits, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	limits, ok := c.types[t]
	return limits, ok
}

// AcceptedFormats returns the formats for a type; a request-level override
// ("pdf,jpg") wins over the catalogue defaults.
func (c *Catalog) AcceptedFormats(t models.TypeDocument, override *string) []string {
	if override != nil && *override != "" {
		parts := strings.Split(*override, ",")
		formats := make([]string, 0, len(parts))
		for _, p := range parts {
			if f := strings.ToLower(strings.TrimSpace(p)); f != "" {
				formats = append(formats, f)
			}
		}
		return formats
	}
	if limits, ok := c.Limits(t); ok {
		return limits.Formats
	}
	return nil
}

// MaxSizeMo returns the size cap in megabytes; a request-level override wins.
// 0 means no cap.
func (c *Catalog) MaxSizeMo(t models.TypeDocument, override *int) int {
	if override != nil && *override > 0 {
		return *override
	}
	if limits, ok := c.Limits(t); ok {
		return limits.TailleMaxMo
	}
	return 0
}

// Accepts reports whether a file of the given original name fits the accepted
// formats. An empty format list accepts everything.
func (c *Catalog) Accepts(t models.TypeDocument, override *string, originalName string) bool {
	formats := c.AcceptedFormats(t, override)
	if len(formats) == 0 {
		return true
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	for _, f := range formats {
		if f == ext {
			return true
		}
	}
	return false
}
