// Command tesmx-demo drives the traffic light machine through its actor and
// prints or exports what happened.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	xlog "github.com/comalice/tesmx/internal/log"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, cfgErr := loadConfig()

	root := &cobra.Command{
		Use:           "tesmx-demo",
		Short:         "Run and inspect the example machines",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			xlog.Configure(xlog.Config{
				Level:   cfg.LogLevel,
				Service: "tesmx-demo",
				Pretty:  cfg.LogPretty,
			})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&cfg.LogPretty, "pretty", cfg.LogPretty, "human-readable log output")

	root.AddCommand(newRunCmd(&cfg), newShapeCmd(), newDotCmd())
	return root
}
