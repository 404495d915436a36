package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-channels/internal/app"
	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/log"
	"github.com/vovakirdan/wirechat-channels/internal/store/sqlite"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "wirechat-channels",
		Short:         "Chat channel server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(flags), newChannelsCmd(flags), newPlayerCmd(flags))
	return root
}

// load resolves configuration and a logger honoring the --log-level override.
func (f *rootFlags) load() (config.Config, string, error) {
	bootLogger := log.New(f.logLevel)
	cfg, path, err := config.Load(bootLogger, f.configPath)
	if err != nil {
		return cfg, path, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, path, nil
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := flags.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			logger := log.New(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, path, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Str("config", path).Msg("starting wirechat channel server")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	return cmd
}

func newChannelsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the configured static channels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}

			table := newTable(cmd, []string{"ID", "Name", "Public", "Script", "MOTD"})
			for _, ch := range cfg.Channels {
				table.Append([]string{
					strconv.Itoa(int(ch.ID)),
					ch.Name,
					strconv.FormatBool(ch.Public),
					ch.Script,
					ch.MOTD,
				})
			}
			table.Render()
			return nil
		},
	}
}

func newPlayerCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Inspect and manage player accounts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered players",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(flags)
			if err != nil {
				return err
			}
			defer st.Close()

			players, err := st.ListPlayers(cmd.Context())
			if err != nil {
				return err
			}
			table := newTable(cmd, []string{"ID", "Name", "Premium", "Guild", "Party"})
			for _, p := range players {
				table.Append([]string{
					strconv.FormatInt(p.ID, 10),
					p.Name,
					strconv.FormatBool(p.Premium),
					optionalID(p.GuildID),
					optionalID(p.PartyID),
				})
			}
			table.Render()
			return nil
		},
	}

	premium := &cobra.Command{
		Use:   "premium <name> <on|off>",
		Short: "Grant or revoke a premium account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			switch args[1] {
			case "on":
				on = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[1])
			}

			st, err := openStore(flags)
			if err != nil {
				return err
			}
			defer st.Close()

			player, err := st.GetPlayerByName(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("player %s: %w", args[0], err)
			}
			if err := st.SetPremium(cmd.Context(), player.ID, on); err != nil {
				return err
			}
			cmd.Printf("%s premium=%t\n", player.Name, on)
			return nil
		},
	}

	cmd.AddCommand(list, premium)
	return cmd
}

func openStore(flags *rootFlags) (*sqlite.SQLiteStore, error) {
	cfg, _, err := flags.load()
	if err != nil {
		return nil, err
	}
	return sqlite.New(cfg.DatabasePath)
}

func newTable(cmd *cobra.Command, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

func optionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}
