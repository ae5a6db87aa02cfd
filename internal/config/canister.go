package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/dfxcore/internal/dfxerr"
	"github.com/kingrea/dfxcore/internal/principal"
)

// Canisters is the ordered canisters section of the manifest.
type Canisters struct {
	names  []string
	byName map[string]*Canister
}

// NewCanisters builds a section from declarations in the given order.
func NewCanisters(names []string, canisters map[string]*Canister) *Canisters {
	out := &Canisters{byName: map[string]*Canister{}}
	for _, name := range names {
		can, ok := canisters[name]
		if !ok {
			can = &Canister{}
		}
		out.names = append(out.names, name)
		out.byName[name] = can
	}
	return out
}

// Names returns canister names in declaration order.
func (c *Canisters) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Get looks a canister up by name.
func (c *Canisters) Get(name string) (*Canister, bool) {
	if c == nil {
		return nil, false
	}
	can, ok := c.byName[name]
	return can, ok
}

// Len returns the number of declared canisters.
func (c *Canisters) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

func (c *Canisters) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return dfxerr.Config("canisters must be an object")
	}
	c.byName = map[string]*Canister{}
	c.names = nil
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var can Canister
		if err := node.Content[i+1].Decode(&can); err != nil {
			return fmt.Errorf("canister %s: %w", name, err)
		}
		if _, exists := c.byName[name]; !exists {
			c.names = append(c.names, name)
		}
		c.byName[name] = &can
	}
	return nil
}

// Declarations controls generated interface bindings.
type Declarations struct {
	Output      string   `yaml:"output"`
	Bindings    []string `yaml:"bindings"`
	EnvOverride string   `yaml:"env_override"`
}

// Remote marks a canister as provided elsewhere on some networks.
type Remote struct {
	Candid string            `yaml:"candid"`
	ID     map[string]string `yaml:"id"`
}

// Extra is one builder-specific key of a canister declaration.
type Extra struct {
	Key   string
	Value *yaml.Node
}

// Extras keeps builder-specific keys in declaration order.
type Extras []Extra

// Get returns the raw value for key.
func (e Extras) Get(key string) (*yaml.Node, bool) {
	for _, extra := range e {
		if extra.Key == key {
			return extra.Value, true
		}
	}
	return nil, false
}

// Keys returns extra keys in declaration order.
func (e Extras) Keys() []string {
	keys := make([]string, 0, len(e))
	for _, extra := range e {
		keys = append(keys, extra.Key)
	}
	return keys
}

// Canister is one entry of the canisters section.
type Canister struct {
	Type         string
	Declarations Declarations
	Remote       *Remote
	Extras       Extras
}

func (c *Canister) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return dfxerr.Config("canister declaration must be an object")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]
		switch key {
		case "type":
			if err := decodeStrict(value, &c.Type); err != nil {
				return dfxerr.Config("Field 'type' is of the wrong type")
			}
		case "declarations":
			if err := value.Decode(&c.Declarations); err != nil {
				return dfxerr.Config("Field 'declarations' is malformed: %v", err)
			}
		case "remote":
			var remote Remote
			if err := value.Decode(&remote); err != nil {
				return dfxerr.Config("Field 'remote' is malformed: %v", err)
			}
			for network, text := range remote.ID {
				if !principal.IsValidText(text) {
					return dfxerr.Config("remote id %q for network %s is not a valid principal", text, network)
				}
			}
			c.Remote = &remote
		default:
			c.Extras = append(c.Extras, Extra{Key: key, Value: value})
		}
	}
	return nil
}

// ExtraValue decodes the extension key into out. It reports false when the
// key is absent and an ErrConfig when the value has the wrong shape.
func (c *Canister) ExtraValue(key string, out any) (bool, error) {
	node, ok := c.Extras.Get(key)
	if !ok {
		return false, nil
	}
	if err := decodeStrict(node, out); err != nil {
		return true, dfxerr.Config("Field '%s' is of the wrong type: %v", key, err)
	}
	return true, nil
}

// ExtraString decodes a string-valued extension key.
func (c *Canister) ExtraString(key string) (string, bool, error) {
	var value string
	ok, err := c.ExtraValue(key, &value)
	return value, ok, err
}

// ExtraStrings decodes a list-of-strings extension key.
func (c *Canister) ExtraStrings(key string) ([]string, bool, error) {
	var values []string
	ok, err := c.ExtraValue(key, &values)
	return values, ok, err
}

// Dependencies returns the canister's declared dependency names.
func (c *Canister) Dependencies() ([]string, error) {
	deps, _, err := c.ExtraStrings("dependencies")
	return deps, err
}

// decodeStrict decodes node into out, refusing the implicit scalar
// conversions yaml allows for strings and string lists.
func decodeStrict(node *yaml.Node, out any) error {
	switch target := out.(type) {
	case *string:
		if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!str" {
			return fmt.Errorf("expected a string")
		}
		*target = node.Value
		return nil
	case *[]string:
		if node.Kind != yaml.SequenceNode {
			return fmt.Errorf("expected a list of strings")
		}
		values := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.ShortTag() != "!!str" {
				return fmt.Errorf("expected a list of strings")
			}
			values = append(values, item.Value)
		}
		*target = values
		return nil
	default:
		return node.Decode(out)
	}
}
