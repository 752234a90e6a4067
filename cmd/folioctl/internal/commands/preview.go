package commands

import (
	"context"

	"github.com/vircom/folio/internal/service"
	"github.com/vircom/folio/internal/types"
)

type PreviewCmd struct {
	TenantFlags `embed:""`
	Type        string `help:"Document type" required:""`
}

func (cmd *PreviewCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx = types.SetTenantID(ctx, cmd.Tenant)
	resp, err := service.NewSequenceService(rt.params).PreviewNext(ctx, types.DocumentType(cmd.Type))
	if err != nil {
		return err
	}
	return printJSON(resp)
}

type ConfigsCmd struct {
	TenantFlags `embed:""`
}

func (cmd *ConfigsCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx = types.SetTenantID(ctx, cmd.Tenant)
	resp, err := service.NewSequenceService(rt.params).ListConfigs(ctx)
	if err != nil {
		return err
	}
	return printJSON(resp)
}
