package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/statecell/internal/harness"
	"github.com/roach88/statecell/internal/middleware"
)

// LoadError is a scenario loading failure with a CLI error code.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position for schema errors
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeLoadFailed  = "E004" // Scenario parse or validation failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeSchemaInvalid = "E102" // Schema file does not compile

	ErrCodeDatabase    = "E201" // Journal open/read/write failed
	ErrCodeDeterminism = "E202" // Replay diverged
	ErrCodeDispatch    = "E203" // Dispatch rejected
)

// FindScenarioFiles returns the .yaml/.yml files under path, sorted. A file
// path is returned as-is. filter is a glob matched against the file name
// without extension.
func FindScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenarios path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	sort.Strings(files)
	return files, nil
}

// LoadScenario parses and validates a scenario file, then compiles its
// schema so CUE errors surface with their position.
func LoadScenario(path string) (*harness.Scenario, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "scenario file not found"}
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()}
	}

	if scenario.Schema != "" {
		if _, err := middleware.LoadSchema(scenario.Schema); err != nil {
			return nil, convertSchemaError(path, err)
		}
	}
	return scenario, nil
}

// convertSchemaError keeps the CUE position of a schema compile error.
func convertSchemaError(path string, err error) *LoadError {
	var compileErr *middleware.SchemaCompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeSchemaInvalid,
			Path:    path,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeSchemaInvalid, Path: path, Message: err.Error()}
}

// loadErrorCode returns the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
