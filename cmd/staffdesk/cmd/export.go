package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"staffdesk/backend"
	"staffdesk/internal/dataset"
)

// newExportCmd creates the 'export' command
func newExportCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [entity] [file]",
		Short: "Export records to a CSV or JSON file",
		Long: "Export an entity's records to a file. The format is taken from\n" +
			"--format, or inferred from the file extension. A bare filename is\n" +
			"written into the configured export directory.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := parseEntity(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			jsonOutput, _ := cmd.Flags().GetBool("json")
			return doExport(cmd, a, entity, args[1], cfg, stdout, jsonOutput)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().String("format", "", "Export format: csv or json (default: from file extension)")
	cmd.Flags().StringP("search", "q", "", "Quick search across the entity's display fields")
	cmd.Flags().StringArrayP("filter", "f", nil, "Filter as \"field[:type] operator value\" (repeatable)")
	cmd.Flags().String("saved", "", "Apply a saved search by name")
	cmd.Flags().Bool("progress", false, "Print progress percentages while writing")

	return cmd
}

// doExport fetches, filters and writes the records, then reports the row count
func doExport(cmd *cobra.Command, a *app, entity backend.Entity, file string, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	format, err := resolveFormat(cmd, file)
	if err != nil {
		return err
	}
	path := file
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(a.fileCfg.GetExportDir(), path)
	}

	filters, err := collectFilters(cmd)
	if err != nil {
		return err
	}

	var records []backend.Record
	var opErr error
	err = a.track(backend.ListOp(entity), entity, func() error {
		a.gw.List(entity, nil,
			func(r []backend.Record) { records = r },
			func(e error) { opErr = e })
		if err := a.await(); err != nil {
			return err
		}
		return opErr
	})
	if err != nil {
		return err
	}

	ds := dataset.New(entity, len(records)+1)
	ds.Load(records)
	if len(filters) > 0 {
		ds.SetFilters(filters)
	}

	var progress func(int)
	if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress && !jsonOutput {
		progress = func(percent int) {
			_, _ = fmt.Fprintf(stdout, "%d%%\n", percent)
		}
	}

	var rows int
	var exportErr error
	dataset.Export(a.disp, ds.Visible(), format, path, progress,
		func(n int) { rows = n },
		func(e error) { exportErr = e })
	if !a.disp.WaitForIdle(time.Minute) {
		return fmt.Errorf("timed out writing export file")
	}
	if exportErr != nil {
		return exportErr
	}

	if jsonOutput {
		return printJSON(stdout, map[string]any{
			"entity": entity,
			"format": format,
			"path":   path,
			"rows":   rows,
		})
	}
	_, _ = fmt.Fprintf(stdout, "Exported %d %s records to %s\n", rows, entity, path)
	if cfg.NoPrompt {
		_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
	}
	return nil
}

// resolveFormat picks the export format from --format or the extension
func resolveFormat(cmd *cobra.Command, file string) (dataset.Format, error) {
	if name, _ := cmd.Flags().GetString("format"); name != "" {
		return dataset.ParseFormat(name)
	}
	ext := filepath.Ext(file)
	if ext == "" {
		return "", fmt.Errorf("cannot infer format from %q, use --format", file)
	}
	return dataset.ParseFormat(ext[1:])
}
