package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"staffdesk/backend"
	"staffdesk/internal/cli/prompt"
	"staffdesk/internal/config"
	"staffdesk/internal/dataset"
	"staffdesk/internal/search"
	"staffdesk/internal/utils"
)

// newListCmd creates the 'list' command for entity listings
func newListCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [entity]",
		Short: "List records of an entity",
		Long: "List records of an entity with optional filtering, sorting and pagination.\n" +
			"Entities: people, departments, positions, employments.",
		Args: cobra.ExactArgs(1),
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
			return doList(cmd, a, entity, cfg, stdout, jsonOutput)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Int("page", 1, "Page number to display")
	cmd.Flags().Int("size", 0, "Records per page (default from config)")
	cmd.Flags().String("sort", "", "Field to sort by")
	cmd.Flags().Bool("desc", false, "Sort descending")
	cmd.Flags().StringP("search", "q", "", "Quick search across the entity's display fields")
	cmd.Flags().StringArrayP("filter", "f", nil, "Filter as \"field[:type] operator value\" (repeatable)")
	cmd.Flags().String("saved", "", "Apply a saved search by name")

	return cmd
}

// doList fetches the entity listing and renders one page of it
func doList(cmd *cobra.Command, a *app, entity backend.Entity, cfg *Config, stdout io.Writer, jsonOutput bool) error {
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

	size, _ := cmd.Flags().GetInt("size")
	if size <= 0 {
		size = a.fileCfg.GetPageSize()
	}
	ds := dataset.New(entity, size)
	ds.Load(records)
	if len(filters) > 0 {
		ds.SetFilters(filters)
	}
	if sortField, _ := cmd.Flags().GetString("sort"); sortField != "" {
		desc, _ := cmd.Flags().GetBool("desc")
		ds.SetSort(sortField, !desc)
	}
	if page, _ := cmd.Flags().GetInt("page"); page > 1 {
		ds.SetPage(page)
	}

	if jsonOutput {
		visible := ds.Visible()
		if visible == nil {
			visible = []backend.Record{}
		}
		return printJSON(stdout, map[string]any{
			"entity":  entity,
			"page":    ds.Page(),
			"pages":   ds.PageCount(),
			"total":   ds.FilteredCount(),
			"records": visible,
		})
	}

	printRecords(stdout, ds.Visible())
	if ds.PageCount() > 1 {
		_, _ = fmt.Fprintf(stdout, "\nPage %d of %d (%d records)\n",
			ds.Page(), ds.PageCount(), ds.FilteredCount())
	}
	if cfg.NoPrompt {
		_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
	}
	return nil
}

// collectFilters builds the filter list from --search, --filter and --saved
func collectFilters(cmd *cobra.Command) ([]search.Filter, error) {
	var filters []search.Filter

	if name, _ := cmd.Flags().GetString("saved"); name != "" {
		store := search.NewStore(config.GetSavedSearchPath())
		saved, err := store.Load(name)
		if err != nil {
			return nil, err
		}
		filters = append(filters, saved...)
	}

	specs, _ := cmd.Flags().GetStringArray("filter")
	for _, spec := range specs {
		filter, err := parseFilterSpec(spec)
		if err != nil {
			return nil, err
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

	return filters, nil
}

// parseFilterSpec parses "field[:type] operator value" into a Filter
func parseFilterSpec(spec string) (search.Filter, error) {
	parts := strings.SplitN(spec, " ", 3)
	if len(parts) != 3 {
		return search.Filter{}, fmt.Errorf("invalid filter %q (expected \"field[:type] operator value\")", spec)
	}

	field, typeName, hasType := strings.Cut(parts[0], ":")
	fieldType := search.FieldTypeText
	if hasType {
		fieldType = search.FieldType(typeName)
	}

	filter := search.Filter{
		Field:     field,
		Operator:  parts[1],
		Value:     parts[2],
		FieldType: fieldType,
	}
	if err := filter.Validate(); err != nil {
		return search.Filter{}, err
	}
	return filter, nil
}

// newGetCmd creates the 'get' command for single-record fetches
func newGetCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get [entity] [id]",
		Short: "Show a single record",
		Args:  cobra.ExactArgs(2),
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

			var record backend.Record
			var opErr error
			err = a.track(backend.GetOp(entity), entity, func() error {
				a.gw.Get(entity, args[1],
					func(r backend.Record) { record = r },
					func(e error) { opErr = e })
				if err := a.await(); err != nil {
					return err
				}
				return opErr
			})
			if err != nil {
				if backend.IsKind(err, backend.KindNotFound) {
					return utils.ErrRecordNotFound(string(entity), args[1])
				}
				return err
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, record)
			}
			printRecord(stdout, record)
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newCreateCmd creates the 'create' command
func newCreateCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "create [entity] [field=value]...",
		Short: "Create a record",
		Long:  "Create a record from field=value pairs, e.g.\n  staffdesk create people first_name=Alice last_name=Ng",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := parseEntity(args[0])
			if err != nil {
				return err
			}
			fields, err := parseFieldArgs(args[1:])
			if err != nil {
				return err
			}

			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			var record backend.Record
			var opErr error
			err = a.track(backend.CreateOp(entity), entity, func() error {
				a.gw.Create(entity, fields,
					func(r backend.Record) { record = r },
					func(e error) { opErr = e })
				if err := a.await(); err != nil {
					return err
				}
				return opErr
			})
			if err != nil {
				return err
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, record)
			}
			_, _ = fmt.Fprintf(stdout, "Created %s %s\n", entitySingular(entity), record.ID())
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newUpdateCmd creates the 'update' command
func newUpdateCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "update [entity] [id] [field=value]...",
		Short: "Update a record",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := parseEntity(args[0])
			if err != nil {
				return err
			}
			fields, err := parseFieldArgs(args[2:])
			if err != nil {
				return err
			}

			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			var record backend.Record
			var opErr error
			err = a.track(backend.UpdateOp(entity), entity, func() error {
				a.gw.Update(entity, args[1], fields,
					func(r backend.Record) { record = r },
					func(e error) { opErr = e })
				if err := a.await(); err != nil {
					return err
				}
				return opErr
			})
			if err != nil {
				if backend.IsKind(err, backend.KindNotFound) {
					return utils.ErrRecordNotFound(string(entity), args[1])
				}
				return err
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, record)
			}
			_, _ = fmt.Fprintf(stdout, "Updated %s %s\n", entitySingular(entity), record.ID())
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newDeleteCmd creates the 'delete' command
func newDeleteCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [entity] [id]",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
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

			if !cfg.NoPrompt {
				label := fmt.Sprintf("Delete %s %s?", entitySingular(entity), args[1])
				confirmed, err := prompt.Confirm(cfg.stdin(), stdout, label)
				if err != nil {
					return err
				}
				if !confirmed {
					_, _ = fmt.Fprintln(stdout, "Cancelled.")
					return nil
				}
			}

			var opErr error
			err = a.track(backend.DeleteOp(entity), entity, func() error {
				a.gw.Delete(entity, args[1],
					nil,
					func(e error) { opErr = e })
				if err := a.await(); err != nil {
					return err
				}
				return opErr
			})
			if err != nil {
				if backend.IsKind(err, backend.KindNotFound) {
					return utils.ErrRecordNotFound(string(entity), args[1])
				}
				return err
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, map[string]string{"deleted": args[1]})
			}
			_, _ = fmt.Fprintf(stdout, "Deleted %s %s\n", entitySingular(entity), args[1])
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// entitySingular returns the singular form of an entity name for messages
func entitySingular(entity backend.Entity) string {
	switch entity {
	case backend.EntityPeople:
		return "person"
	case backend.EntityDepartments:
		return "department"
	case backend.EntityPositions:
		return "position"
	case backend.EntityEmployments:
		return "employment"
	}
	return string(entity)
}
