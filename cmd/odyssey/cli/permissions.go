package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/odyssey-erp/odyssey-school/internal/rbac"
)

// PermissionService is the subset of rbac.Service the CLI needs.
type PermissionService interface {
	Snapshot(ctx context.Context, role rbac.Role) (rbac.Snapshot, error)
	SetFlag(ctx context.Context, actor rbac.Actor, role rbac.Role, module rbac.Module, action rbac.Action, value bool) (rbac.PermissionRow, int64, error)
}

// PermissionsCLI prints and edits the permission matrix from a terminal.
type PermissionsCLI struct {
	service PermissionService
}

// NewPermissionsCLI builds the helper.
func NewPermissionsCLI(service PermissionService) *PermissionsCLI {
	return &PermissionsCLI{service: service}
}

type matrixLine struct {
	Module   rbac.Module `json:"module"`
	Explicit bool        `json:"explicit"`
	rbac.Flags
}

// Show writes the effective matrix of role as a table, or JSON when asJSON.
func (c *PermissionsCLI) Show(ctx context.Context, out io.Writer, rawRole string, asJSON bool) error {
	role, err := rbac.ParseRole(rawRole)
	if err != nil {
		return err
	}
	snap, err := c.service.Snapshot(ctx, role)
	if err != nil {
		return fmt.Errorf("load %s: %w", role, err)
	}
	modules := rbac.DeriveModuleMap(snap)
	lines := make([]matrixLine, 0, len(modules))
	for _, module := range rbac.AllModules() {
		lines = append(lines, matrixLine{Module: module, Explicit: snap.Explicit(module), Flags: modules[module]})
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"role": role, "epoch": snap.Epoch, "modules": lines})
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "role %s (epoch %d)\n", role, snap.Epoch)
	fmt.Fprintln(tw, "MODULE\tVIEW\tCREATE\tEDIT\tDELETE\tSOURCE")
	for _, line := range lines {
		source := "default"
		if line.Explicit {
			source = "explicit"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", line.Module, mark(line.CanView), mark(line.CanCreate), mark(line.CanEdit), mark(line.CanDelete), source)
	}
	return tw.Flush()
}

// Set changes one flag as the system actor.
func (c *PermissionsCLI) Set(ctx context.Context, out io.Writer, rawRole, rawModule, rawAction string, value bool) error {
	role, err := rbac.ParseRole(rawRole)
	if err != nil {
		return err
	}
	module, err := rbac.ParseModule(rawModule)
	if err != nil {
		return err
	}
	action, err := rbac.ParseAction(rawAction)
	if err != nil {
		return err
	}
	row, epoch, err := c.service.SetFlag(ctx, rbac.SystemActor, role, module, action, value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s/%s view=%t create=%t edit=%t delete=%t (epoch %d)\n",
		row.Role, row.Module, row.CanView, row.CanCreate, row.CanEdit, row.CanDelete, epoch)
	return err
}

func mark(v bool) string {
	if v {
		return "yes"
	}
	return "-"
}
