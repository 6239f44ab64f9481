// Command journalctl administers accounts and inspects cache keys.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ctenarsky-denik/journal/internal/app"
	"github.com/ctenarsky-denik/journal/internal/config"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the state shared by subcommands.
type cli struct {
	configPath string
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:           "journalctl",
		Short:         "Administration tool for the reading journal backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultConfigPath, "Path to YAML config file")

	root.AddCommand(c.accountCmd(), c.fingerprintCmd(), c.tokenCmd())
	return root
}

func (c *cli) loadConfig() (*config.AppConfig, error) {
	return config.Load(c.configPath)
}

// withLedger opens the configured stores for the duration of fn.
func (c *cli) withLedger(ctx context.Context, fn func(*quota.Ledger) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger := zap.NewNop()
	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close(context.Background())
	return fn(stores.Ledger(cfg, logger))
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
