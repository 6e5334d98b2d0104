package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	appName = "prewutils"
	version = "v0.4.0"
)

// commonFlags are shared by every command reading a run configuration.
func commonFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("common", pflag.ExitOnError)
	fs.StringP("config", "c", "run.yaml", "Run configuration file")
	return fs
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Assemble polarised fit setups and run toy fits",
		Version: version,
		Long: `prewutils assembles the fit setup of polarised e+e- measurements from
tabulated predictions and a YAML run configuration, and runs toy fits of the
assembled setup in parallel.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			lvl, err := zerolog.ParseLevel(level)
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(lvl)
			return nil
		},
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(newSetupCmd())      // Assembly
	rootCmd.AddCommand(newToysCmd())       // Toy fits
	rootCmd.AddCommand(newMinimizersCmd()) // Chain check

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
