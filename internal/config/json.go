package config

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// parseJSON decodes a JSON config. gjson walks objects in document order,
// which encoding/json's map decoding would lose, and it reports every key
// of an object so duplicate command names surface in validation.
func parseJSON(data []byte) ([]CommandSpec, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("top level must be an object")
	}

	commands := root.Get("commands")
	if !commands.Exists() {
		return nil, errors.New(`missing "commands"`)
	}
	if !commands.IsObject() {
		return nil, errors.New(`"commands" must be an object mapping names to commands`)
	}

	var (
		specs []CommandSpec
		err   error
	)
	commands.ForEach(func(key, value gjson.Result) bool {
		var spec CommandSpec
		spec, err = commandFromJSON(key.String(), value)
		if err != nil {
			return false
		}
		specs = append(specs, spec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return specs, nil
}

// commandFromJSON accepts either the short form (an argv array) or the full
// object form.
func commandFromJSON(name string, value gjson.Result) (CommandSpec, error) {
	spec := CommandSpec{Name: name, TTY: TTYAuto}

	if value.IsArray() {
		argv, err := jsonStrings(value)
		if err != nil {
			return spec, fmt.Errorf("command %q: argv: %w", name, err)
		}
		spec.Argv = argv
		return spec, nil
	}

	if !value.IsObject() {
		return spec, fmt.Errorf("command %q: must be an argv array or an object", name)
	}

	var err error
	value.ForEach(func(key, field gjson.Result) bool {
		switch key.String() {
		case "argv":
			if !field.IsArray() {
				err = fmt.Errorf("command %q: argv must be an array of strings", name)
				return false
			}
			spec.Argv, err = jsonStrings(field)
			if err != nil {
				err = fmt.Errorf("command %q: argv: %w", name, err)
			}
		case "workdir":
			switch field.Type {
			case gjson.Null:
			case gjson.String:
				spec.Workdir = field.Str
			default:
				err = fmt.Errorf("command %q: workdir must be a string", name)
			}
		case "tty":
			switch field.Type {
			case gjson.Null:
			case gjson.String:
				spec.TTY, err = ParseTTYPolicy(field.Str)
				if err != nil {
					err = fmt.Errorf("command %q: %w", name, err)
				}
			default:
				err = fmt.Errorf("command %q: tty must be a string", name)
			}
		case "env":
			spec.Env, err = jsonEnv(name, field)
		default:
			err = fmt.Errorf("command %q: unknown field %q", name, key.String())
		}
		return err == nil
	})
	if err != nil {
		return spec, err
	}
	if spec.Argv == nil {
		return spec, fmt.Errorf("command %q: missing argv", name)
	}
	return spec, nil
}

func jsonStrings(arr gjson.Result) ([]string, error) {
	elems := arr.Array()
	out := make([]string, 0, len(elems))
	for i, e := range elems {
		if e.Type != gjson.String {
			return nil, fmt.Errorf("element %d is not a string", i)
		}
		out = append(out, e.Str)
	}
	return out, nil
}

// jsonEnv maps string values to replacements and null to unset.
func jsonEnv(name string, obj gjson.Result) ([]EnvVar, error) {
	if obj.Type == gjson.Null {
		return nil, nil
	}
	if !obj.IsObject() {
		return nil, fmt.Errorf("command %q: env must be an object", name)
	}

	var (
		env []EnvVar
		err error
	)
	obj.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Null:
			env = append(env, EnvVar{Name: key.String(), Unset: true})
		case gjson.String:
			env = append(env, EnvVar{Name: key.String(), Value: value.Str})
		default:
			err = fmt.Errorf("command %q: env %q must be a string or null", name, key.String())
			return false
		}
		return true
	})
	return env, err
}
