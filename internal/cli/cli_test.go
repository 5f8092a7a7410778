package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/racksmith/internal/racktest"
)

func writeRack(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, racktest.Gzip(doc), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "racksmith", cmd.Use)

	for _, name := range []string{"analyze", "tree", "chain", "list", "policy"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "list", "--format", "xml", "--db", ":memory:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestAnalyzeJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeRack(t, dir, "space.adg", racktest.NestedRack)

	out, err := execute(t, "analyze", path, "--format", "json", "--db", ":memory:")
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, path, r["path"])
	assert.Equal(t, "succeeded", r["status"])
	assert.EqualValues(t, 3, r["total_chains_detected"])
	assert.EqualValues(t, 2, r["max_nesting_depth"])
	assert.Equal(t, true, r["constitutional_compliant"])
	assert.Contains(t, r, "performance_rating")
}

func TestAnalyzeFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.adg")
	require.NoError(t, os.WriteFile(bad, racktest.Corrupt, 0o644))

	out, err := execute(t, "analyze", bad, "--db", ":memory:")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "failed")
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := execute(t, "analyze", filepath.Join(t.TempDir(), "nope.adg"), "--db", ":memory:")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestResultsPersist(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "racksmith.db")
	nested := writeRack(t, dir, "space.adg", racktest.NestedRack)
	flat := writeRack(t, dir, "glue.adg", racktest.FlatRack)

	_, err := execute(t, "analyze", nested, flat, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Parallel Space")
	assert.Contains(t, out, "Glue")
	assert.Contains(t, out, "2 results")

	out, err = execute(t, "list", "--db", db, "--search", "parallel")
	require.NoError(t, err)
	assert.Contains(t, out, "1 results")
}

func TestTree(t *testing.T) {
	dir := t.TempDir()
	path := writeRack(t, dir, "space.adg", racktest.NestedRack)

	out, err := execute(t, "tree", path, "--devices", "--db", ":memory:")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "3 chains, 2 levels")
	assert.Contains(t, out, "c0  Dry")
	assert.Contains(t, out, "    c1.d0.c0  Verb")
	assert.Contains(t, out, "- Reverb <Reverb>")
}

func TestChain(t *testing.T) {
	dir := t.TempDir()
	path := writeRack(t, dir, "space.adg", racktest.NestedRack)

	out, err := execute(t, "chain", path, "c1.d0.c0", "--db", ":memory:")
	require.NoError(t, err)
	assert.Contains(t, out, "c1.d0.c0  Verb")
	assert.Contains(t, out, "parent  c1")

	_, err = execute(t, "chain", path, "c9", "--db", ":memory:")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPolicyValidate(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	require.NoError(t, os.WriteFile(valid, []byte(`active: "2.0.0"
policies:
  - version: "2.0.0"
    require_completeness: true
    require_hierarchy_integrity: true
    performance_ceiling_ms: 2000
`), 0o644))

	out, err := execute(t, "policy", "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "valid, 1 versions, active 2.0.0")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte(`active: "9.9.9"
policies:
  - version: "2.0.0"
    performance_ceiling_ms: 2000
`), 0o644))

	_, err = execute(t, "policy", "validate", invalid)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPolicyShow(t *testing.T) {
	out, err := execute(t, "policy", "show", "--db", ":memory:")
	require.NoError(t, err)
	assert.Contains(t, out, "* 1.1.0")
}
