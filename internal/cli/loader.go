package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/gridstamp/internal/config"
	"github.com/roach88/gridstamp/internal/engine"
)

// LoadError is a failure to load a world or scenario file.
type LoadError struct {
	Code    string
	Message string
	Path    string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadConfig reads a world config. An empty path yields the default world.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "config file not found", Path: path}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidConfig, Message: err.Error(), Path: path}
	}
	return cfg, nil
}

// loadConfig wraps LoadConfig, reporting failures through formatter as
// command errors (exit code 2).
func loadConfig(path string, formatter *OutputFormatter) (*config.Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		code, msg := ErrCodeGeneric, err.Error()
		var le *LoadError
		if errors.As(err, &le) {
			code = le.Code
		}
		_ = formatter.Error(code, msg, nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if path != "" {
		formatter.VerboseLog("Loaded config %s", path)
	}
	return cfg, nil
}

// loadEngine builds an engine from a config file, or the default world when
// path is empty. Failures are reported through formatter.
func loadEngine(opts *RootOptions, path string, formatter *OutputFormatter, extra ...engine.Option) (*engine.Engine, error) {
	cfg, err := loadConfig(path, formatter)
	if err != nil {
		return nil, err
	}
	engineOpts := append([]engine.Option{engine.WithLogger(opts.Logger(formatter.GetErrWriter()))}, extra...)
	e, err := engine.NewFromConfig(cfg, engineOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to build world", err)
	}
	return e, nil
}

// FindScenarioFiles walks dir and returns every .yaml or .yml file whose
// base name (without extension) matches filter. An empty filter matches
// everything. Files under a "golden" directory are skipped.
func FindScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "golden" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}
