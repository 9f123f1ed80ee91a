package entitlement

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Plans  []PlanDefinition  `yaml:"plans"`
	AddOns []AddOnDefinition `yaml:"add_ons"`
}

// LoadCatalog decodes plan and add-on definitions from YAML and validates
// them into a Catalog. The document must carry the full catalog including
// the free plan; partial overlays are not merged.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("entitlement: read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return NewCatalog(file.Plans, file.AddOns)
}

// LoadCatalogFile loads a catalog from the YAML file at path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("entitlement: open catalog file: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}
