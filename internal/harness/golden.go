package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/repoquery/internal/ir"
)

// Snapshot captures the derived queries and results of a scenario run.
type Snapshot struct {
	ScenarioName string
	Steps        []StepResult
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, step := range s.Steps {
		m := map[string]any{"invoke": step.Invoke}
		if len(step.Args) > 0 {
			m["args"] = step.Args
		}
		if step.Query != nil {
			m["query"] = step.Query
		}
		if step.Result != nil {
			m["result"] = step.Result
		}
		if step.Code != "" {
			m["code"] = step.Code
		}
		if step.Error != "" {
			m["error"] = step.Error
		}
		steps[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
	}
}

// MarshalSnapshot returns the canonical JSON form of a run's steps.
func MarshalSnapshot(name string, res *Result) ([]byte, error) {
	snapshot := Snapshot{ScenarioName: name, Steps: res.Steps}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	res, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return res, AssertGolden(t, scenario.Name, res)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, res *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, res)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
