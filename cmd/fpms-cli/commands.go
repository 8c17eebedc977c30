package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/it-Barath/fpms-sub006/internal/domain"
	"github.com/it-Barath/fpms-sub006/internal/service"

	"github.com/spf13/cobra"
)

// the CLI runs with administrator visibility
var operator = domain.RequestContext{UserID: "fpms-cli", Role: domain.RoleAdmin}

func reportCmd(a *app) *cobra.Command {
	var (
		level, code, name, gn string
		from, to              string
		format, out           string
		includeUnrecorded     bool
	)

	cmd := &cobra.Command{
		Use:   "report <type>",
		Short: "Generate a report (" + strings.Join(recipeKeyNames(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := service.ReportRequest{
				ReportType:        args[0],
				From:              from,
				To:                to,
				GnOverride:        gn,
				IncludeUnrecorded: includeUnrecorded,
			}
			if level != "" {
				l, ok := service.ParseScopeLevel(level)
				if !ok {
					return fmt.Errorf("%w: unknown level %q", service.ErrInvalidScope, level)
				}
				req.Scope = &service.Scope{Level: l, Code: code, Name: name}
			}

			payload, err := a.assembler.Assemble(cmd.Context(), operator, req)
			if err != nil {
				return err
			}
			for _, w := range payload.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", w.Code, w.Message)
			}

			if format == "table" {
				return writeTable(cmd.OutOrStdout(), payload)
			}
			exported, err := a.assembler.Export(cmd.Context(), payload, format)
			if err != nil {
				return err
			}
			if out == "" {
				out = exported.FileName
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(exported.Body)
				return err
			}
			if err := os.WriteFile(out, exported.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows)\n", out, len(payload.Rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&level, "level", "all", "scope level: all, district, division, gn")
	cmd.Flags().StringVar(&code, "code", "", "office code of the scope")
	cmd.Flags().StringVar(&name, "name", "", "district or division name")
	cmd.Flags().StringVar(&gn, "gn", "", "narrow the scope to one GN office")
	cmd.Flags().StringVar(&from, "from", "", "registration date from (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "registration date to (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "table, csv, excel, html or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file; '-' for stdout (default: generated file name)")
	cmd.Flags().BoolVar(&includeUnrecorded, "include-unrecorded", false, "educationLevels: add a Not Recorded row")
	return cmd
}

func writeTable(w io.Writer, payload *service.ReportPayload) error {
	fmt.Fprintln(w, payload.Title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(payload.Headers, "\t"))
	for _, row := range payload.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if len(payload.Rows) == 0 {
		fmt.Fprintln(tw, "(no data)")
	}
	return tw.Flush()
}

func mappingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mapping",
		Short: "Show how many GN offices are linked to a division",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.resolver.ComputeMappingCompleteness(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "GN offices: %d, mapped: %d, unmapped: %d\n", m.TotalGnOffices, m.MappedGnOffices, m.Unmapped())
			if m.Complete() {
				fmt.Fprintln(w, "mapping is complete")
				return nil
			}
			for _, code := range m.UnmappedGnCodes {
				fmt.Fprintln(w, "  "+code)
			}
			return nil
		},
	}
}

func resolveCmd(a *app) *cobra.Command {
	var division, district string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the GN offices a division or district resolves to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				res *service.Resolution
				err error
			)
			switch {
			case division != "" && district != "":
				return fmt.Errorf("use either --division or --district")
			case division != "":
				res, err = a.resolver.ResolveGnCodesForDivision(cmd.Context(), division)
			case district != "":
				res, err = a.resolver.ResolveGnCodesForDistrict(cmd.Context(), district)
			default:
				return fmt.Errorf("one of --division or --district is required")
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&division, "division", "", "division office code")
	cmd.Flags().StringVar(&district, "district", "", "district name")
	return cmd
}

func recipeKeyNames() []string {
	keys := service.RecipeKeys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
