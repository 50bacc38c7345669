package config

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillet/pkg/logger"
)

// Source says where an effective value comes from.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)

// Entry is one effective setting.
type Entry struct {
	Key    string `json:"key" yaml:"key"`
	Value  any    `json:"value" yaml:"value"`
	Source Source `json:"source" yaml:"source"`
}

// File edits the user config file.
type File struct {
	path string
}

// NewFile wraps the config file at path. The file need not exist.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Get returns the effective value of key.
func (f *File) Get(key string) (Entry, error) {
	if !IsKnown(key) {
		return Entry{}, unknownKey(key)
	}
	v := viper.New()
	if err := Init(v, f.path); err != nil {
		return Entry{}, err
	}
	return Entry{Key: key, Value: v.Get(key), Source: f.source(v, key)}, nil
}

// List returns every known key plus any provider keys set in the file.
func (f *File) List() ([]Entry, error) {
	v := viper.New()
	if err := Init(v, f.path); err != nil {
		return nil, err
	}

	keys := Keys()
	for _, k := range v.AllKeys() {
		if strings.HasPrefix(k, providerKeyPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: v.Get(k), Source: f.source(v, k)})
	}
	return entries, nil
}

// Set writes key to the config file. The value is parsed as YAML so "3",
// "true" and "0.5" keep their types.
func (f *File) Set(ctx context.Context, key, raw string) error {
	if !IsKnown(key) {
		return unknownKey(key)
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		value = raw
	}

	err := f.update(func(doc map[string]any) {
		setNested(doc, strings.Split(key, "."), value)
	})
	if err != nil {
		return err
	}
	logger.G(ctx).WithField("file", f.path).WithField("key", key).Debug("configuration updated")
	return nil
}

// Reset removes key from the file, or the whole file when key is empty.
func (f *File) Reset(ctx context.Context, key string) error {
	if key == "" {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrap(err, "failed to remove config file")
		}
		logger.G(ctx).WithField("file", f.path).Debug("configuration reset")
		return nil
	}
	if !IsKnown(key) {
		return unknownKey(key)
	}

	return f.update(func(doc map[string]any) {
		deleteNested(doc, strings.Split(key, "."))
	})
}

// Ensure creates an empty config file when none exists, for editing.
func (f *File) Ensure() error {
	if _, err := os.Stat(f.path); err == nil {
		return nil
	}
	return f.update(func(map[string]any) {})
}

// Editor returns the command used by "config edit".
func Editor() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return "vi"
}

func (f *File) source(v *viper.Viper, key string) Source {
	envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	if _, ok := os.LookupEnv(envKey); ok {
		return SourceEnv
	}
	if v.InConfig(key) {
		return SourceFile
	}
	return SourceDefault
}

// update applies edit to the parsed file while holding an exclusive lock.
func (f *File) update(edit func(doc map[string]any)) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	err := lockedfile.Transform(f.path, func(data []byte) ([]byte, error) {
		doc := map[string]any{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
		if doc == nil {
			doc = map[string]any{}
		}
		edit(doc)
		out, err := yaml.Marshal(doc)
		return out, errors.Wrap(err, "failed to marshal config")
	})
	return errors.Wrap(err, "failed to update config file")
}

func setNested(doc map[string]any, path []string, value any) {
	for _, p := range path[:len(path)-1] {
		next, ok := doc[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			doc[p] = next
		}
		doc = next
	}
	doc[path[len(path)-1]] = value
}

func deleteNested(doc map[string]any, path []string) {
	if len(path) == 1 {
		delete(doc, path[0])
		return
	}
	next, ok := doc[path[0]].(map[string]any)
	if !ok {
		return
	}
	deleteNested(next, path[1:])
	if len(next) == 0 {
		delete(doc, path[0])
	}
}

func unknownKey(key string) error {
	return errors.Errorf("unknown config key '%s' (run 'skillet config list' to see known keys)", key)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
