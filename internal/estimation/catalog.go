package estimation

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Phase is one fixed stage of the workflow being estimated.
type Phase struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// ScaleEntry is one allowed estimate token with its effort description.
type ScaleEntry struct {
	Value EstimateValue `yaml:"value" json:"value"`
	Label string        `yaml:"label" json:"label"`
}

// EstimateValue is a numeric effort token taken from the catalog scale.
type EstimateValue float64

// Catalog holds the ordered phases and the estimate scale. It is immutable
// once the server has started.
type Catalog struct {
	Phases []Phase      `yaml:"phases" json:"phases"`
	Scale  []ScaleEntry `yaml:"scale" json:"scale"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Phases: []Phase{
			{ID: "apprentissage", Label: "Effort d'apprentissage"},
			{ID: "qa-prepa", Label: "QA > Prépa strat de Kalif + 1er comité"},
			{ID: "devs-cas-tests", Label: "Dévs > prépa cas de tests (dont cobunit...)"},
			{ID: "complexite-devs", Label: "Complexité des dévs"},
			{ID: "devs-tu-ti", Label: "Dévs > Exécution des TU et TI"},
			{ID: "qualif-post-devs", Label: "Qualif post dévs et 2nd comité"},
			{ID: "deploiement", Label: "Déploiement"},
		},
		Scale: []ScaleEntry{
			{Value: 0, Label: "peu d'effort, quasi nul"},
			{Value: 0.5, Label: "très simple / trivial"},
			{Value: 1, Label: "travail très rapide"},
			{Value: 2, Label: "peu complexe"},
			{Value: 3, Label: "complexité faible"},
			{Value: 5, Label: "complexité modérée"},
			{Value: 8, Label: "travail difficile"},
			{Value: 13, Label: "très complexe, gros effort"},
			{Value: 20, Label: "au-delà du raisonnable"},
		},
	}
}

// LoadCatalog reads a YAML catalog. An empty path yields the default catalog.
func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

func (c Catalog) Validate() error {
	if len(c.Phases) == 0 {
		return errors.New("catalog has no phases")
	}
	if len(c.Scale) == 0 {
		return errors.New("catalog has no scale values")
	}
	seen := make(map[string]struct{}, len(c.Phases))
	for _, phase := range c.Phases {
		id := strings.TrimSpace(phase.ID)
		if id == "" {
			return errors.New("catalog phase id is required")
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate catalog phase %q", id)
		}
		seen[id] = struct{}{}
	}
	values := make(map[EstimateValue]struct{}, len(c.Scale))
	for i, entry := range c.Scale {
		if entry.Value < 0 {
			return fmt.Errorf("catalog value %v is negative", entry.Value)
		}
		if _, ok := values[entry.Value]; ok {
			return fmt.Errorf("duplicate catalog value %v", entry.Value)
		}
		if i > 0 && entry.Value < c.Scale[i-1].Value {
			return errors.New("catalog scale must be ordered")
		}
		values[entry.Value] = struct{}{}
	}
	return nil
}

func (c Catalog) Phase(id string) (Phase, bool) {
	for _, phase := range c.Phases {
		if phase.ID == id {
			return phase, true
		}
	}
	return Phase{}, false
}

func (c Catalog) HasValue(value EstimateValue) bool {
	for _, entry := range c.Scale {
		if entry.Value == value {
			return true
		}
	}
	return false
}
