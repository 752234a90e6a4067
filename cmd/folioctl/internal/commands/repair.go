package commands

import (
	"context"
	"errors"

	"github.com/vircom/folio/internal/service"
	"github.com/vircom/folio/internal/types"
)

type RepairCmd struct {
	TenantFlags `embed:""`
	Type        string `help:"Document type to repair" xor:"scope"`
	All         bool   `help:"Repair every document type of the tenant" xor:"scope"`
}

func (cmd *RepairCmd) Run(ctx context.Context, globals *Globals) error {
	if cmd.Type == "" && !cmd.All {
		return errors.New("either --type or --all is required")
	}

	rt, err := newRuntime(globals)
	if err != nil {
		return err
	}
	defer rt.Close()

	svc := service.NewReconciliationService(rt.params)

	ctx = types.SetTenantID(ctx, cmd.Tenant)
	if cmd.All {
		resp, err := svc.ReconcileAll(ctx)
		if err != nil {
			return err
		}
		return printJSON(resp)
	}

	report, err := svc.AnalyzeAndRepair(ctx, types.DocumentType(cmd.Type))
	if err != nil {
		return err
	}
	return printJSON(report)
}
