package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"staffdesk/backend"
	"staffdesk/backend/rest"
	"staffdesk/internal/analytics"
	"staffdesk/internal/cache"
	"staffdesk/internal/config"
	"staffdesk/internal/credentials"
	"staffdesk/internal/dispatch"
	"staffdesk/internal/gateway"
	"staffdesk/internal/utils"
)

// Version is set at build time
var Version = "dev"

// Result codes for CLI output (used in no-prompt mode)
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

// Config holds application configuration
type Config struct {
	NoPrompt   bool
	Verbose    bool
	ConfigPath string              // Path to config file (for testing)
	Keyring    credentials.Keyring // Keyring override (for testing)
	Stdin      io.Reader           // Prompt input override (for testing)
}

// stdin returns the prompt input source, defaulting to os.Stdin
func (c *Config) stdin() io.Reader {
	if c.Stdin != nil {
		return c.Stdin
	}
	return os.Stdin
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	if cfg == nil {
		cfg = &Config{}
	}
	rootCmd := NewStaffdesk(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		// Check if --json flag was passed to output error as JSON
		if containsJSONFlag(args) {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			// Emit ERROR result code in no-prompt mode
			if cfg.NoPrompt || containsNoPromptFlag(args) {
				_, _ = fmt.Fprintln(stdout, ResultError)
			}
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

// containsNoPromptFlag checks if args contain the --no-prompt flag or
// its shorthand
func containsNoPromptFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--no-prompt" || arg == "-y" {
			return true
		}
	}
	return false
}

// outputErrorJSON writes an error as a JSON object, including the
// recovery suggestion when the error carries one
func outputErrorJSON(err error, stdout io.Writer) {
	output := map[string]string{"error": err.Error()}
	var suggestErr *utils.ErrorWithSuggestion
	if errors.As(err, &suggestErr) {
		output["suggestion"] = suggestErr.GetSuggestion()
	}
	if kind := backend.KindOf(err); kind != backend.KindGeneric {
		output["kind"] = string(kind)
	}
	jsonBytes, _ := json.Marshal(output)
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
}

// NewStaffdesk creates the root command with injectable IO
func NewStaffdesk(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "staffdesk",
		Short:   "A personnel records client",
		Long:    "staffdesk is a command-line client for personnel records servers:\npeople, departments, positions and employments.",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("config", "", "Path to config file")
	cmd.PersistentFlags().String("server", "", "Records server URL (overrides config)")

	cmd.AddCommand(newListCmd(stdout, cfg))
	cmd.AddCommand(newGetCmd(stdout, cfg))
	cmd.AddCommand(newCreateCmd(stdout, cfg))
	cmd.AddCommand(newUpdateCmd(stdout, cfg))
	cmd.AddCommand(newDeleteCmd(stdout, cfg))
	cmd.AddCommand(newExportCmd(stdout, cfg))
	cmd.AddCommand(newSearchCmd(stdout, cfg))
	cmd.AddCommand(newStatsCmd(stdout, cfg))
	cmd.AddCommand(newPingCmd(stdout, cfg))
	cmd.AddCommand(newLoginCmd(stdout, stderr, cfg))
	cmd.AddCommand(newLogoutCmd(stdout, cfg))
	cmd.AddCommand(newTuiCmd(cfg))
	cmd.AddCommand(newAnalyticsCmd(stdout, cfg))
	cmd.AddCommand(newVersionCmd(stdout, cfg))

	return cmd
}

// app bundles the collaborators a command needs to talk to the server:
// configuration, the REST client and the cache/dispatcher/gateway stack.
type app struct {
	fileCfg *config.Config
	client  backend.Client
	disp    *dispatch.Dispatcher
	gw      *gateway.Gateway
	tracker *analytics.Tracker
}

// newApp builds the application stack from config and flags. The
// dispatcher delivers callbacks inline: CLI commands block on the
// result anyway, so there is no UI loop to marshal onto.
func newApp(cmd *cobra.Command, cfg *Config) (*app, error) {
	applyGlobalFlags(cmd, cfg)

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = cfg.ConfigPath
	}
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := fileCfg.Validate(); err != nil {
		return nil, err
	}

	serverURL, _ := cmd.Flags().GetString("server")
	fileCfg.ApplyFlags(serverURL, cfg.NoPrompt)

	if fileCfg.Server.URL == "" {
		return nil, utils.ErrServerNotConfigured()
	}

	client, err := newRestClient(fileCfg, cfg)
	if err != nil {
		return nil, err
	}

	c := cache.New()
	d := dispatch.New(nil)
	gw := gateway.New(client, c, d, gateway.Config{
		ListTTL:   fileCfg.GetListTTL(),
		RecordTTL: fileCfg.GetRecordTTL(),
		StatsTTL:  fileCfg.GetStatsTTL(),
	})

	tracker, err := analytics.NewTracker(config.GetAnalyticsDBPath(),
		analytics.IsEnabledFromEnv(fileCfg.IsAnalyticsEnabled()))
	if err != nil {
		utils.Warnf("analytics disabled: %v", err)
		tracker = nil
	}

	return &app{
		fileCfg: fileCfg,
		client:  client,
		disp:    d,
		gw:      gw,
		tracker: tracker,
	}, nil
}

// newRestClient resolves credentials and builds the REST client. A
// configured username selects basic auth with the stored secret as the
// password; without one the secret is sent as a bearer token.
func newRestClient(fileCfg *config.Config, cfg *Config) (backend.Client, error) {
	var opts []credentials.ManagerOption
	if cfg.Keyring != nil {
		opts = append(opts, credentials.WithKeyring(cfg.Keyring))
	}
	manager := credentials.NewManager(opts...)

	info, err := manager.Get(context.Background(), fileCfg.Server.Username)
	if err != nil {
		return nil, err
	}

	restCfg := rest.Config{
		BaseURL: fileCfg.Server.URL,
		Timeout: fileCfg.GetServerTimeout(),
	}
	if info.Found {
		if fileCfg.Server.Username != "" && info.Source != credentials.SourceEnvironment {
			restCfg.Username = fileCfg.Server.Username
			restCfg.Password = info.Secret
		} else {
			restCfg.Token = info.Secret
		}
	}
	return rest.New(restCfg)
}

// applyGlobalFlags folds the persistent flags into the command config
func applyGlobalFlags(cmd *cobra.Command, cfg *Config) {
	if noPrompt, _ := cmd.Flags().GetBool("no-prompt"); noPrompt {
		cfg.NoPrompt = true
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
		utils.GetLogger().SetVerbose(true)
	}
}

// close releases the application stack in reverse construction order
func (a *app) close() {
	a.disp.WaitForIdle(2 * time.Second)
	a.gw.Stop()
	if a.tracker != nil {
		_ = a.tracker.Close()
	}
	_ = a.client.Close()
}

// await blocks until in-flight server work drains. The budget covers
// the per-request timeout plus retry backoff slack.
func (a *app) await() error {
	if !a.disp.WaitForIdle(a.fileCfg.GetServerTimeout() + 10*time.Second) {
		return fmt.Errorf("timed out waiting for server response")
	}
	return nil
}

// track wraps a server operation with usage analytics when enabled.
// CLI invocations start with an empty cache, so reads never hit it.
func (a *app) track(operation string, entity backend.Entity, fn func() error) error {
	if a.tracker == nil {
		return fn()
	}
	return a.tracker.TrackOperation(operation, string(entity), false, fn)
}

// parseEntity validates an entity name argument
func parseEntity(name string) (backend.Entity, error) {
	entity := backend.Entity(strings.ToLower(name))
	if !entity.Valid() {
		return "", utils.ErrUnknownEntity(name)
	}
	return entity, nil
}

// parseFieldArgs parses key=value positional arguments into a field map
func parseFieldArgs(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid field %q (expected key=value)", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

// printJSON writes a value as a single JSON line
func printJSON(stdout io.Writer, v any) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
	return nil
}

// printRecords writes records as an aligned table, columns taken from
// the first record's sorted field names
func printRecords(stdout io.Writer, records []backend.Record) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(stdout, "No records found.")
		return
	}

	columns := recordColumns(records[0])
	for i, col := range columns {
		if i > 0 {
			_, _ = fmt.Fprint(stdout, "\t")
		}
		_, _ = fmt.Fprint(stdout, strings.ToUpper(col))
	}
	_, _ = fmt.Fprintln(stdout)

	for _, record := range records {
		for i, col := range columns {
			if i > 0 {
				_, _ = fmt.Fprint(stdout, "\t")
			}
			_, _ = fmt.Fprint(stdout, record.String(col))
		}
		_, _ = fmt.Fprintln(stdout)
	}
}

// printRecord writes a single record as field: value lines, id first
func printRecord(stdout io.Writer, record backend.Record) {
	for _, col := range recordColumns(record) {
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", col, record.String(col))
	}
}

// recordColumns returns the record's field names, id first then sorted
func recordColumns(record backend.Record) []string {
	columns := make([]string, 0, len(record))
	for field := range record {
		if field != backend.FieldID {
			columns = append(columns, field)
		}
	}
	sort.Strings(columns)
	if _, ok := record[backend.FieldID]; ok {
		columns = append([]string{backend.FieldID}, columns...)
	}
	return columns
}
