package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fieldflow/pkg/application/dto"
	"github.com/vsinha/fieldflow/pkg/interfaces/cli/output"
)

var towerFixture = filepath.Join("..", "..", "..", "infrastructure", "repositories", "fixtures", "testdata", "tower.yaml")

// run executes the root command with args against a memory store
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FIELDFLOW_APP_ENV", "prod")
	t.Setenv("FIELDFLOW_STORE_DRIVER", "memory")
	t.Setenv("FIELDFLOW_LOCKING_DRIVER", "local")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCriticalPathCommand_WritesChartsAndJSON(t *testing.T) {
	dir := t.TempDir()
	svgPath := filepath.Join(dir, "charts", "tower.svg")
	htmlPath := filepath.Join(dir, "tower.html")

	out, err := run(t, "--fixtures", towerFixture, "--format", "json",
		"workflow", "critical-path", "tower12", "--svg", svgPath, "--html", htmlPath)
	require.NoError(t, err)

	var cp dto.CriticalPath
	require.NoError(t, json.Unmarshal([]byte(out), &cp), out)
	require.Len(t, cp.Nodes, 2)

	svg, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "Router install")

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), cp.JobID.String())
}

func TestWorkflowStatusCommand_Text(t *testing.T) {
	out, err := run(t, "--fixtures", towerFixture, "workflow", "status", "tower12")
	require.NoError(t, err)
	assert.Contains(t, out, "Job status:    Created")
	assert.Contains(t, out, "  - accept")
}

func TestWorkflowStatusCommand_UnknownJobKey(t *testing.T) {
	_, err := run(t, "--fixtures", towerFixture, "workflow", "status", "tower99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tower99")
}

func TestSnapshotsRebuild_EmptyLedger(t *testing.T) {
	out, err := run(t, "--format", "json", "snapshots", "rebuild")
	require.NoError(t, err)

	var snaps []dto.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snaps), out)
	assert.Empty(t, snaps)
}

func TestSeedCommand_ValidatesScenario(t *testing.T) {
	out, err := run(t, "--format", "json", "seed", towerFixture)
	require.NoError(t, err)

	var summary output.SeedSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary), out)
	assert.Equal(t, 2, summary.Technicians)
	assert.Equal(t, 2, summary.EquipmentTypes)
	assert.Equal(t, 3, summary.Tools)
	assert.Equal(t, 2, summary.Tasks)
	assert.Contains(t, summary.JobIDs, "tower12")

	_, err = run(t, "seed", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "postgres"))
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := run(t, "--format", "xml", "snapshots", "rebuild")
	assert.Error(t, err)
}
