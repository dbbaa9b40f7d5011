// Package personas содержит встроенный каталог персонажей-аналитиков.
package personas

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"ai-diary/internal/domain"
)

//go:embed personas.yaml
var catalogYAML []byte

type catalogFile struct {
	ResponseFormat   string           `yaml:"response_format"`
	StructuredFormat string           `yaml:"structured_format"`
	Categories       []string         `yaml:"categories"`
	Personas         []domain.Persona `yaml:"personas"`
}

// Catalog хранит неизменяемый набор персонажей.
type Catalog struct {
	personas   []domain.Persona
	byID       map[string]domain.Persona
	categories []string
}

var _ domain.PersonaCatalog = (*Catalog)(nil)

// Load читает встроенный каталог. При structured=true к системным подсказкам
// добавляется инструкция вернуть JSON вместо помеченных полей.
func Load(structured bool) (*Catalog, error) {
	return parse(catalogYAML, structured)
}

func parse(data []byte, structured bool) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("personas: decode catalog: %w", err)
	}
	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("personas: catalog is empty")
	}
	suffix := file.ResponseFormat
	if structured {
		suffix = file.StructuredFormat
	}

	c := &Catalog{
		personas:   make([]domain.Persona, 0, len(file.Personas)),
		byID:       make(map[string]domain.Persona, len(file.Personas)),
		categories: append([]string(nil), file.Categories...),
	}
	for _, p := range file.Personas {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("personas: persona without id")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("personas: duplicate id %q", p.ID)
		}
		p.SystemPrompt = strings.TrimRight(p.SystemPrompt, "\n") + "\n\n" + suffix
		c.personas = append(c.personas, p)
		c.byID[p.ID] = p
	}
	return c, nil
}

// Get возвращает персонажа по идентификатору.
func (c *Catalog) Get(id string) (domain.Persona, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// List возвращает персонажей в порядке каталога.
func (c *Catalog) List() []domain.Persona {
	out := make([]domain.Persona, len(c.personas))
	copy(out, c.personas)
	return out
}

// Categories возвращает допустимые категории рекомендаций.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}
