package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"staffdesk/internal/config"
	"staffdesk/internal/search"
)

// newSearchCmd creates the 'search' command group for saved searches
func newSearchCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Manage saved searches",
		Long: "Save, list, rename and delete named filter sets. Apply one to a\n" +
			"listing or export with --saved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newSearchSaveCmd(stdout, cfg))
	cmd.AddCommand(newSearchListCmd(stdout, cfg))
	cmd.AddCommand(newSearchRenameCmd(stdout, cfg))
	cmd.AddCommand(newSearchDeleteCmd(stdout, cfg))

	return cmd
}

// searchStore opens the saved-search store at its configured location
func searchStore() *search.Store {
	return search.NewStore(config.GetSavedSearchPath())
}

// newSearchSaveCmd creates the 'search save' subcommand
func newSearchSaveCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Save a named search",
		Long: "Save the given filters under a name. Saving an existing name\n" +
			"replaces its filters.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			var filters []search.Filter
			specs, _ := cmd.Flags().GetStringArray("filter")
			for _, spec := range specs {
				filter, err := parseFilterSpec(spec)
				if err != nil {
					return err
				}
				filters = append(filters, filter)
			}
			if quick, _ := cmd.Flags().GetString("search"); quick != "" {
				filters = append(filters, search.Filter{
					Field:     search.QuickSearchField,
					Operator:  "contains",
					Value:     quick,
					FieldType: search.FieldTypeText,
				})
			}
			if len(filters) == 0 {
				return fmt.Errorf("nothing to save: provide --filter or --search")
			}

			if err := searchStore().Save(args[0], filters); err != nil {
				return err
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, map[string]any{"saved": args[0], "filters": len(filters)})
			}
			_, _ = fmt.Fprintf(stdout, "Saved search '%s' (%d filters)\n", args[0], len(filters))
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringArrayP("filter", "f", nil, "Filter as \"field[:type] operator value\" (repeatable)")
	cmd.Flags().StringP("search", "q", "", "Quick search term to include")

	return cmd
}

// newSearchListCmd creates the 'search list' subcommand
func newSearchListCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			searches := searchStore().List()

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				if searches == nil {
					searches = []search.SavedSearch{}
				}
				return printJSON(stdout, searches)
			}

			if len(searches) == 0 {
				_, _ = fmt.Fprintln(stdout, "No saved searches. Create one with: staffdesk search save")
				if cfg.NoPrompt {
					_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
				}
				return nil
			}

			_, _ = fmt.Fprintf(stdout, "%-20s %-8s %-6s %s\n", "NAME", "FILTERS", "USED", "CREATED")
			for _, s := range searches {
				_, _ = fmt.Fprintf(stdout, "%-20s %-8d %-6d %s\n",
					s.Name, len(s.Filters), s.UseCount, s.CreatedAt.Format("2006-01-02"))
			}
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newSearchRenameCmd creates the 'search rename' subcommand
func newSearchRenameCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rename [old] [new]",
		Short: "Rename a saved search",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			if err := searchStore().Rename(args[0], args[1]); err != nil {
				return err
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, map[string]string{"renamed": args[0], "to": args[1]})
			}
			_, _ = fmt.Fprintf(stdout, "Renamed search '%s' to '%s'\n", args[0], args[1])
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newSearchDeleteCmd creates the 'search delete' subcommand
func newSearchDeleteCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			if err := searchStore().Delete(args[0]); err != nil {
				return err
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, map[string]string{"deleted": args[0]})
			}
			_, _ = fmt.Fprintf(stdout, "Deleted search '%s'\n", args[0])
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
