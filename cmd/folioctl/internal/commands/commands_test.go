package commands

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCLI struct {
	Repair   RepairCmd   `cmd:""`
	Backfill BackfillCmd `cmd:""`
	Preview  PreviewCmd  `cmd:""`
	Configs  ConfigsCmd  `cmd:""`
}

func parse(t *testing.T, args ...string) (*testCLI, *kong.Context, error) {
	t.Helper()
	var cli testCLI
	parser, err := kong.New(&cli, kong.Exit(func(int) {}))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	return &cli, kctx, err
}

func TestParseCommands(t *testing.T) {
	cli, kctx, err := parse(t, "repair", "--tenant", "tenant_a", "--type", "quotation")
	require.NoError(t, err)
	assert.Equal(t, "repair", kctx.Command())
	assert.Equal(t, "tenant_a", cli.Repair.Tenant)
	assert.Equal(t, "quotation", cli.Repair.Type)
	assert.False(t, cli.Repair.All)

	cli, _, err = parse(t, "repair", "--tenant", "tenant_a", "--all")
	require.NoError(t, err)
	assert.True(t, cli.Repair.All)

	cli, kctx, err = parse(t, "backfill", "--tenant", "tenant_b", "--type", "maintenance")
	require.NoError(t, err)
	assert.Equal(t, "backfill", kctx.Command())
	assert.Equal(t, "tenant_b", cli.Backfill.Tenant)
	assert.Equal(t, "maintenance", cli.Backfill.Type)

	cli, _, err = parse(t, "preview", "--tenant", "tenant_c", "--type", "sale")
	require.NoError(t, err)
	assert.Equal(t, "sale", cli.Preview.Type)

	cli, _, err = parse(t, "configs", "--tenant", "tenant_d")
	require.NoError(t, err)
	assert.Equal(t, "tenant_d", cli.Configs.Tenant)
}

func TestRepairScopeFlagsAreExclusive(t *testing.T) {
	_, _, err := parse(t, "repair", "--tenant", "tenant_a", "--type", "quotation", "--all")
	assert.Error(t, err)
}

func TestBackfillRequiresType(t *testing.T) {
	_, _, err := parse(t, "backfill", "--tenant", "tenant_a")
	assert.Error(t, err)
}
