package typedefs

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

type file struct {
	Types []entry `yaml:"types"`
}

// entry decodes one type, filling the defaults that a bare YAML mapping leaves
// unset.
type entry struct {
	def  *domain.TypeDefinition
	line int
}

type flags struct {
	Creatable *bool `yaml:"creatable"`
	Fileable  *bool `yaml:"fileable"`
	Queryable *bool `yaml:"queryable"`
}

func (e *entry) UnmarshalYAML(n *yaml.Node) error {
	def := &domain.TypeDefinition{}
	if err := n.Decode(def); err != nil {
		return err
	}
	var f flags
	if err := n.Decode(&f); err != nil {
		return err
	}

	def.Creatable = orDefault(f.Creatable, true)
	def.Queryable = orDefault(f.Queryable, true)
	def.Fileable = orDefault(f.Fileable, def.BaseType != domain.BaseTypeRelationship)
	for _, p := range def.Properties {
		if p == nil {
			continue
		}
		if p.Cardinality == "" {
			p.Cardinality = domain.CardinalitySingle
		}
		if p.Updatability == "" {
			p.Updatability = domain.UpdatabilityReadWrite
		}
	}

	e.def = def
	e.line = n.Line
	return nil
}

func orDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Decode reads every YAML document from r and returns the declared types in
// file order. Only structural problems are reported here; the type manager
// validates the definitions themselves.
func Decode(r io.Reader) ([]*domain.TypeDefinition, error) {
	dec := yaml.NewDecoder(r)

	var defs []*domain.TypeDefinition
	seen := make(map[string]int)
	for {
		var f file
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.InvalidArgumentf("decode type definitions: %v", err)
		}
		for _, e := range f.Types {
			if e.def.ID == "" {
				return nil, domain.InvalidArgumentf("line %d: type id is required", e.line)
			}
			if first, ok := seen[e.def.ID]; ok {
				return nil, domain.InvalidArgumentf("line %d: type %s already declared on line %d", e.line, e.def.ID, first)
			}
			seen[e.def.ID] = e.line
			defs = append(defs, e.def)
		}
	}
	return defs, nil
}

// LoadFile decodes the type definitions stored at path.
func LoadFile(path string) ([]*domain.TypeDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	defs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Encode writes defs as a single YAML document in the format Decode reads.
func Encode(w io.Writer, defs []*domain.TypeDefinition) error {
	out := make([]*domain.TypeDefinition, 0, len(defs))
	for _, d := range defs {
		c := d.Clone()
		for _, id := range slices.Sorted(maps.Keys(c.PropertyDefinitions)) {
			if pd := c.PropertyDefinitions[id]; !pd.Inherited {
				c.Properties = append(c.Properties, pd)
			}
		}
		out = append(out, c)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(struct {
		Types []*domain.TypeDefinition `yaml:"types"`
	}{out}); err != nil {
		return err
	}
	return enc.Close()
}
