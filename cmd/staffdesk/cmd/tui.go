package cmd

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"staffdesk/internal/cache"
	"staffdesk/internal/config"
	"staffdesk/internal/dispatch"
	"staffdesk/internal/gateway"
	"staffdesk/internal/shutdown"
	"staffdesk/internal/tui"
	"staffdesk/internal/utils"
)

// newTuiCmd creates the 'tui' command that opens the interactive interface
func newTuiCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal interface",
		Long: "Browse and manage records interactively. Background refresh and\n" +
			"connectivity probing run while the interface is open.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyGlobalFlags(cmd, cfg)

			configPath, _ := cmd.Flags().GetString("config")
			if configPath == "" {
				configPath = cfg.ConfigPath
			}
			fileCfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := fileCfg.Validate(); err != nil {
				return err
			}
			serverURL, _ := cmd.Flags().GetString("server")
			fileCfg.ApplyFlags(serverURL, cfg.NoPrompt)
			if fileCfg.Server.URL == "" {
				return utils.ErrServerNotConfigured()
			}

			client, err := newRestClient(fileCfg, cfg)
			if err != nil {
				return err
			}

			// The dispatcher delivers callbacks through the model's queue
			// so datasets are only ever touched on the UI loop.
			model := tui.New(fileCfg.GetPageSize())
			d := dispatch.New(model.Deliver)
			gw := gateway.New(client, cache.New(), d, gateway.Config{
				ListTTL:   fileCfg.GetListTTL(),
				RecordTTL: fileCfg.GetRecordTTL(),
				StatsTTL:  fileCfg.GetStatsTTL(),
			})
			model.SetGateway(gw)

			refreshLog, err := utils.NewRefreshLoggerWithEnabled(fileCfg.IsRefreshLoggingEnabled())
			if err == nil {
				gw.OnConnectionChange(func(connected bool) {
					refreshLog.Printf("connection changed: connected=%v", connected)
				})
			}

			shut := shutdown.NewManager()
			stopSignals := shut.HandleSignals()
			defer stopSignals()
			// Cleanups run in reverse registration order: drain the
			// dispatcher, stop the gateway loops, then close the client.
			if refreshLog != nil {
				shut.RegisterCleanup("refresh-log", func(ctx context.Context) error {
					refreshLog.Close()
					return nil
				})
			}
			shut.RegisterCleanup("client", func(ctx context.Context) error {
				return client.Close()
			})
			shut.RegisterCleanup("gateway", func(ctx context.Context) error {
				gw.Stop()
				return nil
			})
			shut.RegisterCleanup("dispatcher", func(ctx context.Context) error {
				d.WaitForIdle(2 * time.Second)
				return nil
			})

			if fileCfg.IsRefreshEnabled() {
				gw.StartAutoRefresh(fileCfg.GetRefreshInterval())
			}
			gw.StartConnectivityProbe(fileCfg.GetProbeInterval())

			p := tea.NewProgram(model, tea.WithAltScreen())
			_, runErr := p.Run()
			shut.Shutdown()
			return runErr
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
