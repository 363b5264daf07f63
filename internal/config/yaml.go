package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// parseYAML decodes a YAML config through the node tree so mapping order is
// kept. Scalars are taken literally, so `[sleep, 5]` is a valid argv; an
// explicit null (or ~) in env unsets the variable.
func parseYAML(data []byte) ([]CommandSpec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}

	root := deref(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("top level must be a mapping")
	}

	commands := lookup(root, "commands")
	if commands == nil {
		return nil, errors.New(`missing "commands"`)
	}
	if commands.Kind != yaml.MappingNode {
		return nil, errors.New(`"commands" must be a mapping of names to commands`)
	}

	specs := make([]CommandSpec, 0, len(commands.Content)/2)
	for i := 0; i+1 < len(commands.Content); i += 2 {
		name := commands.Content[i].Value
		spec, err := commandFromYAML(name, deref(commands.Content[i+1]))
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func commandFromYAML(name string, n *yaml.Node) (CommandSpec, error) {
	spec := CommandSpec{Name: name, TTY: TTYAuto}

	switch n.Kind {
	case yaml.SequenceNode:
		argv, err := yamlStrings(n)
		if err != nil {
			return spec, fmt.Errorf("command %q: argv: %w", name, err)
		}
		spec.Argv = argv
		return spec, nil
	case yaml.MappingNode:
	default:
		return spec, fmt.Errorf("command %q: must be an argv sequence or a mapping (line %d)", name, n.Line)
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		field := deref(n.Content[i+1])

		switch key {
		case "argv":
			if field.Kind != yaml.SequenceNode {
				return spec, fmt.Errorf("command %q: argv must be a sequence (line %d)", name, field.Line)
			}
			argv, err := yamlStrings(field)
			if err != nil {
				return spec, fmt.Errorf("command %q: argv: %w", name, err)
			}
			spec.Argv = argv
		case "workdir":
			if isNull(field) {
				continue
			}
			if field.Kind != yaml.ScalarNode {
				return spec, fmt.Errorf("command %q: workdir must be a string (line %d)", name, field.Line)
			}
			spec.Workdir = field.Value
		case "tty":
			if isNull(field) {
				continue
			}
			if field.Kind != yaml.ScalarNode {
				return spec, fmt.Errorf("command %q: tty must be a string (line %d)", name, field.Line)
			}
			tty, err := ParseTTYPolicy(field.Value)
			if err != nil {
				return spec, fmt.Errorf("command %q: %w", name, err)
			}
			spec.TTY = tty
		case "env":
			env, err := yamlEnv(name, field)
			if err != nil {
				return spec, err
			}
			spec.Env = env
		default:
			return spec, fmt.Errorf("command %q: unknown field %q (line %d)", name, key, n.Content[i].Line)
		}
	}

	if spec.Argv == nil {
		return spec, fmt.Errorf("command %q: missing argv", name)
	}
	return spec, nil
}

func yamlStrings(seq *yaml.Node) ([]string, error) {
	out := make([]string, 0, len(seq.Content))
	for i, e := range seq.Content {
		e = deref(e)
		if e.Kind != yaml.ScalarNode || isNull(e) {
			return nil, fmt.Errorf("element %d is not a string (line %d)", i, e.Line)
		}
		out = append(out, e.Value)
	}
	return out, nil
}

func yamlEnv(name string, m *yaml.Node) ([]EnvVar, error) {
	if isNull(m) {
		return nil, nil
	}
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("command %q: env must be a mapping (line %d)", name, m.Line)
	}

	env := make([]EnvVar, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		value := deref(m.Content[i+1])
		switch {
		case isNull(value):
			env = append(env, EnvVar{Name: key, Unset: true})
		case value.Kind == yaml.ScalarNode:
			env = append(env, EnvVar{Name: key, Value: value.Value})
		default:
			return nil, fmt.Errorf("command %q: env %q must be a string or null (line %d)", name, key, value.Line)
		}
	}
	return env, nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return deref(m.Content[i+1])
		}
	}
	return nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
