// Package credentials layers .env files into the process environment.
//
// Precedence, highest first: the process environment, the skill's own .env,
// the user config .env, the project root .env. Variables that were set before
// any file was loaded are never overwritten; values that came from a file may
// be shadowed by a higher file layer for the duration of an overlay.
package credentials

import (
	"context"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/logger"
)

var (
	mu       sync.Mutex
	fromFile = make(map[string]bool)
)

// LoadGlobal loads the user config and project .env files into the process
// environment for the lifetime of the process. Missing files are skipped.
func LoadGlobal(ctx context.Context, userEnv, projectEnv string) error {
	files := existing(userEnv, projectEnv)
	values, err := Read(files...)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	loaded := 0
	for k, v := range values {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return errors.Wrapf(err, "failed to set %s", k)
		}
		fromFile[k] = true
		loaded++
	}
	if loaded > 0 {
		logger.G(ctx).WithField("files", files).WithField("keys", loaded).Debug("loaded env files")
	}
	return nil
}

// Overlay applies the given .env files, highest precedence first, and
// returns a function that puts back every variable the overlay changed.
// Values loaded from files, including by LoadGlobal, are overridden.
func Overlay(ctx context.Context, files ...string) (restore func(), err error) {
	files = existing(files...)
	values, err := Read(files...)
	if err != nil {
		return func() {}, err
	}

	previous, err := overlay(values)
	restore = func() {
		mu.Lock()
		defer mu.Unlock()
		for k, old := range previous {
			if old == nil {
				_ = os.Unsetenv(k)
				delete(fromFile, k)
				continue
			}
			_ = os.Setenv(k, *old)
		}
	}
	if err != nil {
		restore()
		return func() {}, err
	}
	if len(previous) > 0 {
		logger.G(ctx).WithField("files", files).WithField("keys", len(previous)).Debug("applied env overlay")
	}
	return restore, nil
}

// overlay sets values over file-loaded keys and returns the prior value of
// every key it touched; nil means the key was unset.
func overlay(values map[string]string) (map[string]*string, error) {
	mu.Lock()
	defer mu.Unlock()

	previous := make(map[string]*string)
	for k, v := range values {
		old, set := os.LookupEnv(k)
		if set && (!fromFile[k] || old == v) {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return previous, errors.Wrapf(err, "failed to set %s", k)
		}
		if set {
			previous[k] = &old
		} else {
			previous[k] = nil
			fromFile[k] = true
		}
	}
	return previous, nil
}

// Read merges the files without touching the environment. Earlier files win.
func Read(files ...string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, f := range existing(files...) {
		values, err := godotenv.Read(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read env file %s", f)
		}
		for k, v := range values {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

func existing(files ...string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f == "" {
			continue
		}
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			out = append(out, f)
		}
	}
	return out
}
