package catalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/phrazzld/ausonia-api/internal/engine"
	"gopkg.in/yaml.v3"
)

// Common errors returned by the catalog package
var (
	ErrInvalidCatalog = errors.New("invalid model catalog")
	ErrDuplicateModel = errors.New("duplicate model id")
)

// Model is one entry of the catalog file
type Model struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Pipeline string `yaml:"pipeline"`
	Path     string `yaml:"path"`
	IsNSFW   bool   `yaml:"is_nsfw"`
}

// Target returns the engine target for m
func (m Model) Target() engine.Target {
	return engine.Target{
		ModelID:  m.ID,
		Pipeline: m.Pipeline,
		Path:     m.Path,
	}
}

// Catalog is an immutable, ordered set of models. It is safe for concurrent use.
type Catalog struct {
	models []Model
	byID   map[string]Model
}

// New builds a catalog from models, rejecting empty or duplicate ids
func New(models ...Model) (*Catalog, error) {
	c := &Catalog{
		models: make([]Model, 0, len(models)),
		byID:   make(map[string]Model, len(models)),
	}

	for i, m := range models {
		if m.ID == "" {
			return nil, fmt.Errorf("%w: model %d has no id", ErrInvalidCatalog, i)
		}
		if m.Pipeline == "" {
			return nil, fmt.Errorf("%w: model %q has no pipeline", ErrInvalidCatalog, m.ID)
		}
		if _, exists := c.byID[m.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModel, m.ID)
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		c.models = append(c.models, m)
		c.byID[m.ID] = m
	}

	return c, nil
}

// Parse decodes a catalog document
func Parse(data []byte) (*Catalog, error) {
	var models []Model
	if err := yaml.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return New(models...)
}

// Load reads and parses the catalog file at path
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model catalog: %w", err)
	}
	return Parse(data)
}

// Resolve returns the engine target for selector
func (c *Catalog) Resolve(selector string) (engine.Target, bool) {
	m, ok := c.byID[selector]
	if !ok {
		return engine.Target{}, false
	}
	return m.Target(), true
}

// Models returns the catalog entries in file order
func (c *Catalog) Models() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// LoadNegativePrompt reads the preset negative prompt file, one term per
// line, and joins the non-empty lines with ", ".
func LoadNegativePrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read negative prompt: %w", err)
	}

	var terms []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if term := strings.TrimSpace(scanner.Text()); term != "" {
			terms = append(terms, term)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read negative prompt: %w", err)
	}

	return strings.Join(terms, ", "), nil
}
