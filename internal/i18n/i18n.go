// Package i18n serves the localized UI and prompt strings. Tables are YAML
// documents keyed by language tag and looked up by dotted field path.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Fallback is used for unknown tags and for keys missing from a table
const Fallback = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

type Catalog struct {
	tables  map[string]map[string]any
	names   []string
	matcher language.Matcher
}

// Load reads the embedded locale tables
func Load() (*Catalog, error) {
	sub, err := fs.Sub(localeFS, "locales")
	if err != nil {
		return nil, err
	}
	return New(sub)
}

// New reads every *.yaml file at the root of fsys. The file name without
// extension is the language tag.
func New(fsys fs.FS) (*Catalog, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("listing locales: %w", err)
	}

	c := &Catalog{tables: make(map[string]map[string]any)}
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		var table map[string]any
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		c.tables[strings.TrimSuffix(path.Base(f), ".yaml")] = table
	}

	if _, ok := c.tables[Fallback]; !ok {
		return nil, fmt.Errorf("locale table %q is required", Fallback)
	}

	// the matcher falls back to the first supported tag
	c.names = append(c.names, Fallback)
	others := make([]string, 0, len(c.tables)-1)
	for name := range c.tables {
		if name != Fallback {
			others = append(others, name)
		}
	}
	sort.Strings(others)
	c.names = append(c.names, others...)

	tags := make([]language.Tag, 0, len(c.names))
	for _, name := range c.names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", name, err)
		}
		tags = append(tags, tag)
	}
	c.matcher = language.NewMatcher(tags)

	return c, nil
}

// Languages returns the available tags, fallback first
func (c *Catalog) Languages() []string {
	return append([]string(nil), c.names...)
}

func (c *Catalog) Has(tag string) bool {
	_, ok := c.tables[tag]
	return ok
}

// Match picks the best table for an Accept-Language header value
func (c *Catalog) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Fallback
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return Fallback
	}
	return c.names[idx]
}

// Resolve maps a requested tag onto an available table
func (c *Catalog) Resolve(tag string) string {
	if c.Has(tag) {
		return tag
	}
	if tag == "" {
		return Fallback
	}
	return c.Match(strings.ReplaceAll(tag, "_", "-"))
}

// Lookup returns the string at a dotted path such as "upload.error_type".
// Missing keys fall back to the en table, then to the path itself.
func (c *Catalog) Lookup(tag, key string) string {
	if s, ok := lookup(c.tables[c.Resolve(tag)], key); ok {
		return s
	}
	if s, ok := lookup(c.tables[Fallback], key); ok {
		return s
	}
	return key
}

// PromptLanguage is the language name placed in analysis instructions
func (c *Catalog) PromptLanguage(tag string) string {
	return c.Lookup(tag, "ai_prompt_lang")
}

// Table returns the full table for tag with missing keys filled from en
func (c *Catalog) Table(tag string) map[string]any {
	return merge(c.tables[Fallback], c.tables[c.Resolve(tag)])
}

// Missing lists dotted paths present in en but absent from tag
func (c *Catalog) Missing(tag string) []string {
	var out []string
	walk(c.tables[Fallback], "", func(p string) {
		if _, ok := lookup(c.tables[tag], p); !ok {
			out = append(out, p)
		}
	})
	sort.Strings(out)
	return out
}

func lookup(table map[string]any, key string) (string, bool) {
	var cur any = table
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[part]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

func merge(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		bm, bok := out[k].(map[string]any)
		om, ook := v.(map[string]any)
		if bok && ook {
			out[k] = merge(bm, om)
			continue
		}
		out[k] = v
	}
	return out
}

func walk(table map[string]any, prefix string, fn func(string)) {
	for k, v := range table {
		p := k
		if prefix != "" {
			p = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			walk(m, p, fn)
			continue
		}
		fn(p)
	}
}
