// Package schema describes the spreadsheet kinds accepted for import.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Kind names.
const (
	KindTeachers    = "teachers"
	KindPreferences = "preferences"
	KindSlots       = "slots"
)

// RuleType selects a per-column check.
type RuleType string

const (
	RuleEnum       RuleType = "enum"
	RuleBoolean    RuleType = "boolean"
	RuleDigits     RuleType = "digits"
	RuleUnique     RuleType = "unique"
	RuleEmail      RuleType = "email"
	RuleSeanceList RuleType = "seance_list"
	RuleDate       RuleType = "date"
	RuleTime       RuleType = "time"
)

// Rule is one semantic check on a column.
type Rule struct {
	Column string   `yaml:"column"`
	Type   RuleType `yaml:"type"`
	Values []string `yaml:"values"`
	// Identifier makes unique compare resolved teacher identifiers instead of cell text.
	Identifier bool `yaml:"identifier"`
}

// TimeWindow pairs a start and end column that must be ordered.
type TimeWindow struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// FileKind is the declared shape of one accepted spreadsheet.
type FileKind struct {
	Name        string       `yaml:"name"`
	Label       string       `yaml:"label"`
	Aliases     []string     `yaml:"aliases"`
	MinRows     int          `yaml:"min_rows"`
	Required    []string     `yaml:"required"`
	Optional    []string     `yaml:"optional"`
	NotNull     []string     `yaml:"not_null"`
	Rules       []Rule       `yaml:"rules"`
	TimeWindows []TimeWindow `yaml:"time_windows"`
}

// Known reports whether column is required or optional for the kind.
func (k *FileKind) Known(column string) bool {
	return contains(k.Required, column) || contains(k.Optional, column)
}

// Catalog is the immutable set of accepted kinds, in declaration order.
type Catalog struct {
	kinds []*FileKind
}

type catalogFile struct {
	Kinds []*FileKind `yaml:"kinds"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file; an empty path yields the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode schema catalog: %w", err)
	}
	c := &Catalog{kinds: file.Kinds}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) check() error {
	if len(c.kinds) == 0 {
		return fmt.Errorf("schema catalog declares no kinds")
	}
	names := map[string]string{}
	for _, k := range c.kinds {
		if k.Name == "" || len(k.Required) == 0 {
			return fmt.Errorf("schema kind %q needs a name and required columns", k.Name)
		}
		for _, n := range append([]string{k.Name}, k.Aliases...) {
			key := strings.ToLower(n)
			if owner, dup := names[key]; dup {
				return fmt.Errorf("schema name %q used by %s and %s", n, owner, k.Name)
			}
			names[key] = k.Name
		}
		for _, col := range k.NotNull {
			if !contains(k.Required, col) {
				return fmt.Errorf("schema kind %s: not_null column %q is not required", k.Name, col)
			}
		}
		for _, r := range k.Rules {
			if !knownRule(r.Type) {
				return fmt.Errorf("schema kind %s: unknown rule type %q", k.Name, r.Type)
			}
			if !k.Known(r.Column) {
				return fmt.Errorf("schema kind %s: rule on undeclared column %q", k.Name, r.Column)
			}
		}
		for _, w := range k.TimeWindows {
			if !contains(k.Required, w.Start) || !contains(k.Required, w.End) {
				return fmt.Errorf("schema kind %s: time window %s/%s must use required columns", k.Name, w.Start, w.End)
			}
		}
	}
	for i := 0; i < len(c.kinds); i++ {
		for j := i + 1; j < len(c.kinds); j++ {
			if sameSet(c.kinds[i].Required, c.kinds[j].Required) {
				return fmt.Errorf("schema kinds %s and %s have identical required columns", c.kinds[i].Name, c.kinds[j].Name)
			}
		}
	}
	return nil
}

// Lookup resolves a kind by name or alias, case-insensitively.
func (c *Catalog) Lookup(name string) (*FileKind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, k := range c.kinds {
		if strings.ToLower(k.Name) == key {
			return k, nil
		}
		for _, a := range k.Aliases {
			if strings.ToLower(a) == key {
				return k, nil
			}
		}
	}
	return nil, appErrors.Clone(appErrors.ErrUnknownFileKind, fmt.Sprintf("unknown file kind: %s", name))
}

// Kinds returns the declared kinds in order.
func (c *Catalog) Kinds() []*FileKind {
	out := make([]*FileKind, len(c.kinds))
	copy(out, c.kinds)
	return out
}

// Names lists the kind names in order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.kinds))
	for _, k := range c.kinds {
		out = append(out, k.Name)
	}
	return out
}

func knownRule(t RuleType) bool {
	switch t {
	case RuleEnum, RuleBoolean, RuleDigits, RuleUnique, RuleEmail, RuleSeanceList, RuleDate, RuleTime:
		return true
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
