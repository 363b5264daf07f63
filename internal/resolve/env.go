// Package resolve turns configured commands into launch-ready ones.
//
// Everything here is pure: the inherited environment and the configuration
// directory are explicit inputs, so nothing in this package reads the process
// environment or the current directory.
package resolve

import (
	"strings"

	"github.com/revyl/shunt/internal/config"
)

// Compose applies an environment patch to an inherited environment.
//
// The result keeps the order of inherited. A patched key that already exists
// keeps its position with the new value; new keys are appended in patch order;
// unset entries remove the key and are a no-op when it is absent. If inherited
// holds a key more than once, the last occurrence wins, as it does for os/exec.
//
// Parameters:
//   - inherited: The parent environment as "NAME=value" entries
//   - patch: The per-command changes, applied in order
//
// Returns:
//   - []string: A new environment list; inherited is never modified
func Compose(inherited []string, patch []config.EnvVar) []string {
	keys := make([]string, 0, len(inherited)+len(patch))
	values := make(map[string]string, len(inherited)+len(patch))

	set := func(k, v string) {
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
		}
		values[k] = v
	}

	for _, kv := range inherited {
		k, v, ok := splitEnv(kv)
		if !ok {
			continue
		}
		set(k, v)
	}

	for _, p := range patch {
		if p.Unset {
			delete(values, p.Name)
			continue
		}
		set(p.Name, p.Value)
	}

	env := make([]string, 0, len(values))
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			continue
		}
		env = append(env, k+"="+v)
		// A key can be unset and then set again by a later patch entry, which
		// appends it a second time.
		delete(values, k)
	}
	return env
}

// splitEnv splits "NAME=value". A leading '=' belongs to the name, which is
// how Windows stores per-drive directories such as "=C:=C:\\".
func splitEnv(kv string) (string, string, bool) {
	i := strings.IndexByte(kv[min(1, len(kv)):], '=')
	if i < 0 {
		return "", "", false
	}
	i += min(1, len(kv))
	return kv[:i], kv[i+1:], true
}
