package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"staffdesk/backend"
	"staffdesk/internal/cli/prompt"
	"staffdesk/internal/config"
	"staffdesk/internal/credentials"
	"staffdesk/internal/utils"
)

// newStatsCmd creates the 'stats' command for the aggregate counts
func newStatsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts per entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			var stats backend.Statistics
			var opErr error
			err = a.track(backend.OpStatistics, "", func() error {
				a.gw.Statistics(
					func(s backend.Statistics) { stats = s },
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
				return printJSON(stdout, stats)
			}
			_, _ = fmt.Fprintf(stdout, "people:      %d\n", stats.People)
			_, _ = fmt.Fprintf(stdout, "departments: %d\n", stats.Departments)
			_, _ = fmt.Fprintf(stdout, "positions:   %d\n", stats.Positions)
			_, _ = fmt.Fprintf(stdout, "employments: %d\n", stats.Employments)
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newPingCmd creates the 'ping' command for connectivity checks
func newPingCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the records server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			pingErr := a.client.Ping()

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				output := map[string]any{
					"server": a.fileCfg.Server.URL,
					"online": pingErr == nil,
				}
				if pingErr != nil {
					output["error"] = pingErr.Error()
				}
				return printJSON(stdout, output)
			}

			if pingErr != nil {
				if backend.IsKind(pingErr, backend.KindAuth) {
					return utils.ErrAuthenticationFailed()
				}
				return utils.ErrServerOffline(pingErr.Error())
			}
			_, _ = fmt.Fprintf(stdout, "Server %s is reachable\n", a.fileCfg.Server.URL)
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultInfoOnly)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newLoginCmd creates the 'login' command that stores credentials in
// the OS keyring
func newLoginCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Store server credentials in the OS keyring",
		Long: "Prompt for a password or API token and store it in the OS keyring.\n" +
			"The username defaults to server.username from the config file.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			username, err := resolveUsername(cmd, cfg, args)
			if err != nil {
				return err
			}

			secret, err := prompt.Password(cfg.stdin(), stdout, "Password or token")
			if err != nil {
				return err
			}
			if secret == "" {
				return fmt.Errorf("empty secret not stored")
			}

			manager := newCredentialManager(cfg)
			if err := manager.Set(context.Background(), username, secret); err != nil {
				return fmt.Errorf("failed to store credentials: %w", err)
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, map[string]string{"stored": username})
			}
			_, _ = fmt.Fprintf(stdout, "Stored credentials for %s. Verify with: staffdesk ping\n", username)
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newLogoutCmd creates the 'logout' command that removes stored credentials
func newLogoutCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout [username]",
		Short: "Remove stored server credentials",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			username, err := resolveUsername(cmd, cfg, args)
			if err != nil {
				return err
			}

			manager := newCredentialManager(cfg)
			if err := manager.Delete(context.Background(), username); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return printJSON(stdout, map[string]string{"removed": username})
			}
			_, _ = fmt.Fprintf(stdout, "Removed credentials for %s\n", username)
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultActionCompleted)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// resolveUsername picks the account name from the argument or config
func resolveUsername(cmd *cobra.Command, cfg *Config, args []string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}

	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = cfg.ConfigPath
	}
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	if fileCfg.Server.Username == "" {
		return "", fmt.Errorf("no username: pass one or set server.username in the config file")
	}
	return fileCfg.Server.Username, nil
}

// newCredentialManager builds the manager, honoring the test keyring override
func newCredentialManager(cfg *Config) *credentials.Manager {
	if cfg.Keyring != nil {
		return credentials.NewManager(credentials.WithKeyring(cfg.Keyring))
	}
	return credentials.NewManager()
}
