package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-school/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-school/internal/app"
)

func permissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Inspect and edit role permissions",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <role>",
		Short: "Print the effective module permissions of a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			helper, closeFn, err := permissionsCLI(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			return helper.Show(cmd.Context(), cmd.OutOrStdout(), args[0], asJSON)
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	set := &cobra.Command{
		Use:   "set <role> <module> <action> <true|false>",
		Short: "Grant or revoke one action of a module for a role",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseBool(args[3])
			if err != nil {
				return fmt.Errorf("value must be true or false: %w", err)
			}
			helper, closeFn, err := permissionsCLI(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			return helper.Set(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], args[2], value)
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

func permissionsCLI(cmd *cobra.Command) (*cli.PermissionsCLI, func(), error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	deps, closeDeps, err := app.Bootstrap(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cli.NewPermissionsCLI(deps.Permissions), closeDeps, nil
}
