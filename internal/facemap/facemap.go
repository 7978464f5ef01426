// Package facemap provides the face-zone overlay points shown on top of an
// uploaded photo. Coordinates are percentages of the photo width and height.
package facemap

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/facereader/facereader/internal/i18n"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModePalaces Mode = "palaces"
	ModeAges    Mode = "ages"
)

//go:embed data/points.yaml
var pointsYAML []byte

type Point struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Name     string  `json:"name"`
	Short    string  `json:"short_desc"`
	Desc     string  `json:"desc"`
	Book     string  `json:"book"`
	AgeRange string  `json:"age_range,omitempty"`
}

type localized map[string]string

func (l localized) get(tag string) string {
	if s, ok := l[tag]; ok {
		return s
	}
	return l[i18n.Fallback]
}

type rawPoint struct {
	ID       string    `yaml:"id"`
	X        float64   `yaml:"x"`
	Y        float64   `yaml:"y"`
	Palace   string    `yaml:"palace"`
	AgeRange string    `yaml:"age_range"`
	Name     localized `yaml:"name"`
	Short    localized `yaml:"short"`
	Desc     localized `yaml:"desc"`
	Book     localized `yaml:"book"`
}

type Map struct {
	points  map[Mode][]rawPoint
	catalog *i18n.Catalog
}

// Load parses the embedded point table. Palace descriptions come from the
// catalog's encyclopedia entries.
func Load(catalog *i18n.Catalog) (*Map, error) {
	return parse(pointsYAML, catalog)
}

func parse(data []byte, catalog *i18n.Catalog) (*Map, error) {
	var raw map[Mode][]rawPoint
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing face map: %w", err)
	}
	for mode, pts := range raw {
		for _, p := range pts {
			if p.X < 0 || p.X > 100 || p.Y < 0 || p.Y > 100 {
				return nil, fmt.Errorf("face map %s point %s outside [0,100]", mode, p.ID)
			}
		}
	}
	return &Map{points: raw, catalog: catalog}, nil
}

func (m *Map) Points(mode Mode, lang string) ([]Point, error) {
	raw, ok := m.points[mode]
	if !ok {
		return nil, fmt.Errorf("unknown face map mode: %s", mode)
	}
	tag := m.catalog.Resolve(lang)

	out := make([]Point, 0, len(raw))
	for _, r := range raw {
		p := Point{
			ID:       r.ID,
			X:        r.X,
			Y:        r.Y,
			Name:     r.Name.get(tag),
			Short:    r.Short.get(tag),
			Book:     r.Book.get(tag),
			AgeRange: r.AgeRange,
		}
		if r.Palace != "" {
			p.Desc = m.catalog.Lookup(tag, "encyclopedia.palaces."+r.Palace)
		} else {
			p.Desc = r.Desc.get(tag)
		}
		out = append(out, p)
	}
	return out, nil
}

// Adjust moves a point by a percentage offset, keeping it on the photo
func Adjust(p Point, dx, dy float64) Point {
	p.X = clampPercent(p.X + dx)
	p.Y = clampPercent(p.Y + dy)
	return p
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 50
	}
	return math.Max(0, math.Min(100, v))
}
