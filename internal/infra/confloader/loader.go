// Package confloader provides configuration loading mechanism.
package confloader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "DOCMIRROR_"

// ErrLayerNotFound is returned when popping a layer that is not on the stack.
var ErrLayerNotFound = errors.New("confloader: layer not found")

// layer is one named source of configuration values.
type layer struct {
	name string
	data map[string]any
}

// Loader merges a stack of configuration layers.
type Loader struct {
	k         *koanf.Koanf
	layers    []layer
	envPrefix string
	useEnv    bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithEnv applies environment variables as the topmost layer.
func WithEnv() Option {
	return func(l *Loader) {
		l.useEnv = true
	}
}

// NewLoader creates a new configuration loader with an empty stack.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// PushFile parses a YAML file and pushes it as a layer named name.
func (l *Loader) PushFile(name, path string) error {
	tmp := koanf.New(".")
	if err := tmp.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return l.push(name, tmp.Raw())
}

// PushBytes parses YAML content and pushes it as a layer named name.
func (l *Loader) PushBytes(name string, content []byte) error {
	data, err := yaml.Parser().Unmarshal(content)
	if err != nil {
		return fmt.Errorf("parse layer %s: %w", name, err)
	}
	return l.push(name, data)
}

// PushMap pushes a map as a layer named name. Keys may be nested maps or
// dotted paths.
func (l *Loader) PushMap(name string, data map[string]any) error {
	return l.push(name, maps.Unflatten(data, "."))
}

func (l *Loader) push(name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	l.layers = append(l.layers, layer{name: name, data: data})
	if err := l.rebuild(); err != nil {
		l.layers = l.layers[:len(l.layers)-1]
		return err
	}
	return nil
}

// Pop removes the most recently pushed layer named name.
func (l *Loader) Pop(name string) error {
	for i := len(l.layers) - 1; i >= 0; i-- {
		if l.layers[i].name != name {
			continue
		}
		prev := l.layers
		l.layers = append(append([]layer{}, prev[:i]...), prev[i+1:]...)
		if err := l.rebuild(); err != nil {
			l.layers = prev
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrLayerNotFound, name)
}

// Layers returns the layer names from bottom to top.
func (l *Loader) Layers() []string {
	names := make([]string, len(l.layers))
	for i, ly := range l.layers {
		names[i] = ly.name
	}
	return names
}

// Snapshot captures the layer stack so it can be restored later.
type Snapshot struct {
	layers []layer
}

// Snapshot returns the current layer stack.
func (l *Loader) Snapshot() Snapshot {
	return Snapshot{layers: append([]layer{}, l.layers...)}
}

// Restore replaces the layer stack with a previous snapshot.
func (l *Loader) Restore(s Snapshot) error {
	l.layers = append([]layer{}, s.layers...)
	return l.rebuild()
}

// rebuild merges every layer, bottom to top, into a fresh koanf instance.
func (l *Loader) rebuild() error {
	k := koanf.New(".")
	for _, ly := range l.layers {
		if err := k.Load(mapProvider(ly.data), nil); err != nil {
			return fmt.Errorf("merge layer %s: %w", ly.name, err)
		}
	}

	if l.useEnv {
		if err := loadEnv(k, l.envPrefix); err != nil {
			return err
		}
	}

	l.k = k
	return nil
}

// loadEnv loads environment variables into k.
// Example: DOCMIRROR_MAIN_LAYOUT=xdg -> main.layout
func loadEnv(k *koanf.Koanf, prefix string) error {
	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		return strings.Replace(s, "_", ".", 1)
	}

	if err := k.Load(env.Provider(prefix, ".", envTransformer), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the merged configuration at path into target.
// Uses koanf tags for struct field mapping.
func (l *Loader) Unmarshal(path string, target any) error {
	return l.k.Unmarshal(path, target)
}

// Get returns a value from the configuration by key.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// MapKeys returns the sorted child keys of key.
func (l *Loader) MapKeys(key string) []string {
	return l.k.MapKeys(key)
}
