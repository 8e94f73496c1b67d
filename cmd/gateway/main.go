package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "gateway",
		Short:         "Payment gateway API, settlement workers and webhook delivery",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd(&cfgPath))
	rootCmd.AddCommand(workerCmd(&cfgPath))
	rootCmd.AddCommand(schedulerCmd(&cfgPath))
	rootCmd.AddCommand(allCmd(&cfgPath))
	rootCmd.AddCommand(migrateCmd(&cfgPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the merchant API and ops endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWith(cmd.Context(), *cfgPath, func(a *app) []component {
				return []component{a.httpServer()}
			})
		},
	}
}

func workerCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume payment, refund and webhook jobs from the bus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWith(cmd.Context(), *cfgPath, func(a *app) []component {
				return []component{a.worker()}
			})
		},
	}
}

func schedulerCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Republish due webhook retries on a fixed interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWith(cmd.Context(), *cfgPath, func(a *app) []component {
				return []component{a.scheduler()}
			})
		},
	}
}

func allCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run API, worker and scheduler in one process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWith(cmd.Context(), *cfgPath, func(a *app) []component {
				return []component{a.httpServer(), a.worker(), a.scheduler()}
			})
		},
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.close()
			return a.migrate(cmd.Context())
		},
	}
}
