package commands

import (
	"context"

	"github.com/vircom/folio/internal/service"
	"github.com/vircom/folio/internal/types"
)

type BackfillCmd struct {
	TenantFlags `embed:""`
	Type        string `help:"Document type to backfill" required:""`
}

func (cmd *BackfillCmd) Run(ctx context.Context, globals *Globals) error {
	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx = types.SetTenantID(ctx, cmd.Tenant)
	resp, err := service.NewDocumentService(rt.params).BackfillNumbers(ctx, types.DocumentType(cmd.Type))
	if err != nil {
		return err
	}
	return printJSON(resp)
}
