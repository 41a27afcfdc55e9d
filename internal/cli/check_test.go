package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPasses(t *testing.T) {
	out, _, err := execute(t, "check", "testdata/schemas", "testdata/definitions/person.yaml")
	require.NoError(t, err)

	want := `✓ PersonRepository.countByActiveTrue
✓ PersonRepository.findByAgeBetween
✓ PersonRepository.findByNameAndAgeGreaterThanEqual

Check Summary: 3 passed, 0 failed, 3 total
✓ All methods derive
`
	assert.Equal(t, want, out)
}

func TestCheckReportsEveryFailure(t *testing.T) {
	out, _, err := execute(t, "check", "testdata/schemas",
		"testdata/definitions/person.yaml",
		"testdata/definitions/broken.yaml",
		"testdata/definitions/conflict.yaml",
		"testdata/definitions/missing.yaml",
	)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "4 method(s) failed", err.Error())

	for _, line := range []string{
		"✗ BrokenRepository.countByAge\n  ARITY_MISMATCH",
		"✓ BrokenRepository.findByName\n",
		"✗ BrokenRepository.findByNickname\n  UNRECOGNIZED_TOKEN",
		"✗ testdata/definitions/conflict.yaml\n",
		"method conflict",
		"✗ testdata/definitions/missing.yaml\n  E005: definitions file not found",
		"Check Summary: 4 passed, 4 failed, 8 total",
	} {
		assert.Contains(t, out, line)
	}
	assert.NotContains(t, out, "All methods derive")
}

func TestCheckJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "check", "testdata/schemas", "testdata/definitions/broken.yaml")
	require.Error(t, err)

	var response struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
		Error  *CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	require.NotNil(t, response.Error)
	assert.Equal(t, "E_CHECK_FAILED", response.Error.Code)

	assert.Equal(t, 3, response.Data.Total)
	assert.Equal(t, 1, response.Data.Passed)
	require.Len(t, response.Data.Methods, 3)

	codes := map[string]string{}
	for _, m := range response.Data.Methods {
		assert.Equal(t, "BrokenRepository", m.Repository)
		codes[m.Method] = m.Code
	}
	assert.Equal(t, map[string]string{
		"countByAge":     "ARITY_MISMATCH",
		"findByName":     "",
		"findByNickname": "UNRECOGNIZED_TOKEN",
	}, codes)
}

func TestCheckCommandErrors(t *testing.T) {
	_, _, err := execute(t, "check", "testdata/schemas")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 2 arg(s)")

	_, _, err = execute(t, "check", "testdata/nowhere", "testdata/definitions/person.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "schema directory not found")
}
