package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteOptions controls a directory run.
type SuiteOptions struct {
	// Filter is a glob matched against scenario file names without
	// extension. Empty runs every scenario.
	Filter string

	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// ScenarioResult is the outcome of one scenario file in a suite.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "matched", "updated" or "" when absent
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult summarizes a directory run.
type SuiteResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// Golden comparison states.
const (
	GoldenMatched = "matched"
	GoldenUpdated = "updated"
)

// FindScenarios lists the .yaml and .yml files under dir, sorted, skipping
// golden directories.
func FindScenarios(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == GoldenDir {
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
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// RunSuite runs every scenario under dir. A scenario passes when it loads,
// runs, satisfies its expectations and assertions, and matches its golden
// file if one exists. The error is non-nil only if dir cannot be walked.
func RunSuite(ctx context.Context, dir string, opts SuiteOptions) (*SuiteResult, error) {
	files, err := FindScenarios(dir, opts.Filter)
	if err != nil {
		return nil, err
	}

	suite := &SuiteResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenarioFile(ctx, file, opts)
		if sr.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
		suite.Scenarios = append(suite.Scenarios, sr)
	}
	return suite, nil
}

func runScenarioFile(ctx context.Context, file string, opts SuiteOptions) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), Path: file}

	scenario, err := LoadScenario(file)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	result, err := RunContext(ctx, scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Errors = result.Errors

	switch {
	case opts.Update:
		if err := WriteGolden(file, scenario, result); err != nil {
			sr.Errors = append(sr.Errors, err.Error())
			return sr
		}
		sr.Golden = GoldenUpdated
	default:
		if _, err := os.Stat(GoldenPath(file)); err == nil {
			match, err := CompareGolden(file, scenario, result)
			switch {
			case err != nil:
				sr.Errors = append(sr.Errors, fmt.Sprintf("golden comparison failed: %v", err))
			case !match:
				sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
			default:
				sr.Golden = GoldenMatched
			}
		}
	}

	sr.Pass = len(sr.Errors) == 0
	return sr
}
