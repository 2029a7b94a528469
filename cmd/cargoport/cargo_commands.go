package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cargoport/internal/api"
	"cargoport/internal/cargo"
	"cargoport/internal/config"
	"cargoport/internal/store"
)

func newCargoCommand(ctx *commandContext) *cobra.Command {
	cargoCmd := &cobra.Command{
		Use:   "cargo",
		Short: "Inspect and edit cargo",
	}
	cargoCmd.AddCommand(newCargoListCommand(ctx))
	cargoCmd.AddCommand(newCargoShowCommand(ctx))
	cargoCmd.AddCommand(newCargoEditCommand(ctx))
	return cargoCmd
}

func newCargoListCommand(ctx *commandContext) *cobra.Command {
	var today bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent cargo",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, st store.Backend) error {
				svc := api.NewCargoService(st, nil, nil, cfg.Paths.PublicURL)
				var (
					views []cargo.View
					err   error
				)
				if today {
					views, err = svc.Today(cmd.Context())
				} else {
					views, err = svc.Recent(cmd.Context())
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No cargo")
					return nil
				}
				fmt.Fprintln(out, renderCargoTable(views))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&today, "today", false, "Only cargo created since UTC midnight")
	return cmd
}

func newCargoShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one cargo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, st store.Backend) error {
				svc := api.NewCargoService(st, nil, nil, cfg.Paths.PublicURL)
				view, err := svc.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if view == nil {
					return fmt.Errorf("cargo %s not found", args[0])
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(view)
				}
				writeCargoDetail(out, *view, api.TextureURL(cfg.Paths.PublicURL, view.ID))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the cargo as JSON")
	return cmd
}

func newCargoEditCommand(ctx *commandContext) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Set the name and description of a cargo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, st store.Backend) error {
				svc := api.NewCargoService(st, nil, nil, cfg.Paths.PublicURL)
				view, err := svc.EditText(cmd.Context(), api.EditTextRequest{
					ID:          args[0],
					Name:        name,
					Description: description,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated cargo %s\n", view.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Cargo name")
	cmd.Flags().StringVar(&description, "description", "", "Cargo description")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func renderCargoTable(views []cargo.View) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{
			v.ID,
			string(v.Type),
			string(v.Status),
			v.CreatedAt.Local().Format(time.DateTime),
			strconv.FormatFloat(v.PaintTime, 'f', 1, 64),
			derefOr(v.Name, "-"),
		})
	}
	return renderTable([]column{
		{Header: "ID"},
		{Header: "Type"},
		{Header: "Status"},
		{Header: "Created"},
		{Header: "Paint", Right: true},
		{Header: "Name", MaxWidth: 32},
	}, rows)
}

func writeCargoDetail(out io.Writer, v cargo.View, textureURL string) {
	fmt.Fprintf(out, "ID:          %s\n", v.ID)
	fmt.Fprintf(out, "Type:        %s\n", v.Type)
	fmt.Fprintf(out, "Status:      %s\n", v.Status)
	fmt.Fprintf(out, "Created:     %s\n", v.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Paint time:  %.1fs\n", v.PaintTime)
	fmt.Fprintf(out, "Texture:     %s\n", textureURL)
	fmt.Fprintf(out, "Name:        %s\n", derefOr(v.Name, "(not generated yet)"))
	fmt.Fprintf(out, "Description: %s\n", derefOr(v.Description, "(not generated yet)"))
}

func derefOr(value *string, fallback string) string {
	if value == nil || *value == "" {
		return fallback
	}
	return *value
}
