package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/revoirb612/pedamint-hcoding/internal/config"
	"github.com/revoirb612/pedamint-hcoding/internal/ranking"
	"github.com/revoirb612/pedamint-hcoding/internal/stats"
)

var (
	rankClear bool
	rankYes   bool
)

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show or clear the local top 10",
		Args:  cobra.NoArgs,
		RunE:  runRankCmd,
	}
	cmd.Flags().BoolVar(&rankClear, "clear", false, "delete the local ranking")
	cmd.Flags().BoolVar(&rankYes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func runRankCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	log, err := commandLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	st, err := openStore(log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	ctx := commandContext(cmd)
	local := ranking.NewLocal(st, log)
	if !rankClear {
		return stats.RenderLocalRanking(cmd.OutOrStdout(), local.Load(ctx))
	}

	if !rankYes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Clear the local ranking? [y/N] ")
		if err != nil {
			return err
		}
		if !ok {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return err
		}
	}
	if err := local.Clear(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "Local ranking cleared.")
	return err
}

func newNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "name [NAME]",
		Short: "Show or set the name used for the online ranking",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runNameCmd,
	}
}

func runNameCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	log, err := commandLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	st, err := openStore(log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	ctx := commandContext(cmd)
	profile := ranking.NewProfile(st)
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		name, err := profile.Username(ctx)
		if err != nil {
			return err
		}
		if name == "" {
			_, err = fmt.Fprintln(out, "No name set. Set one with: clickspeed name <NAME>")
			return err
		}
		_, err = fmt.Fprintln(out, name)
		return err
	}

	name, err := profile.SetUsername(ctx, args[0])
	if err != nil {
		if errors.Is(err, ranking.ErrEmptyUsername) {
			return fmt.Errorf("name must not be empty")
		}
		return err
	}
	_, err = fmt.Fprintf(out, "Saved name: %s\n", name)
	return err
}

func newTopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top",
		Short: "Show the online top list",
		Args:  cobra.NoArgs,
		RunE:  runTopCmd,
	}
}

func runTopCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	cfg, err := resolveGameConfig(cmd, fileCfg)
	if err != nil {
		return err
	}
	log, err := commandLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	client := newRemoteClient(cfg, log)
	if client == nil {
		return fmt.Errorf("online ranking disabled: set --remote-url, %s or [remote] base-url", config.EnvRemoteURL)
	}
	entries, err := client.FetchTop(commandContext(cmd), "")
	if err != nil {
		return err
	}
	return stats.RenderRemoteRanking(cmd.OutOrStdout(), entries)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
