package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/vircom/folio/cmd/folioctl/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Repair   commands.RepairCmd   `cmd:"" help:"Raise sequence counters to the highest number in use"`
		Backfill commands.BackfillCmd `cmd:"" help:"Number documents that have no number yet"`
		Preview  commands.PreviewCmd  `cmd:"" help:"Show the next number of a document type"`
		Configs  commands.ConfigsCmd  `cmd:"" help:"List the sequence configs of a tenant"`
		Debug    bool                 `help:"Enable debug mode."`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("folioctl"),
		kong.Description("Administer document number sequences"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
