package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/revoirb612/pedamint-hcoding/internal/config"
	"github.com/revoirb612/pedamint-hcoding/internal/rankserver"
)

const defaultServerAddr = ":8080"

var (
	serveAddr    string
	serveDSN     string
	serveLimit   int
	serveOrigins []string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the online ranking service",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultServerAddr, "listen address")
	cmd.Flags().StringVar(&serveDSN, "dsn", "", "postgres:// URL or SQLite path (default: data dir)")
	cmd.Flags().IntVar(&serveLimit, "limit", rankserver.DefaultLimit, "entries per top list")
	cmd.Flags().StringSliceVar(&serveOrigins, "allowed-origin", nil, "CORS allowed origins (default *)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	log, err := commandLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "dsn", &serveDSN, fileCfg.Server.DSN)
	applyIntConfig(cmd, "limit", &serveLimit, fileCfg.Server.Limit)
	if !cmd.Flags().Changed("allowed-origin") && len(fileCfg.Server.AllowedOrigins) > 0 {
		serveOrigins = fileCfg.Server.AllowedOrigins
	}
	if serveDSN == "" {
		serveDSN = config.DefaultServerDBPath()
	}
	if serveLimit <= 0 {
		return fmt.Errorf("--limit must be > 0")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := rankserver.OpenRepository(ctx, serveDSN)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close repository")
		}
	}()

	submitPath, listPath := defaultSubmitPath, defaultListPath
	if v := fileCfg.Remote.SubmitPath; v != nil {
		submitPath = *v
	}
	if v := fileCfg.Remote.ListPath; v != nil {
		listPath = *v
	}
	srv := rankserver.New(rankserver.Config{
		SubmitPath:     submitPath,
		ListPath:       listPath,
		AllowedOrigins: serveOrigins,
		Limit:          serveLimit,
	}, repo, nil, log)
	return rankserver.ListenAndServe(ctx, serveAddr, srv.Handler(), log)
}
