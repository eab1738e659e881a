package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kass/go-geo-locale/pkg/config"
	"github.com/kass/go-geo-locale/pkg/resolver"
	"github.com/kass/go-geo-locale/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app carries state shared by every subcommand of one invocation
type app struct {
	configFile  string
	localesFile string
	verbose     bool
	jsonOutput  bool

	cfg *config.Config
	log *logrus.Logger
	out *printer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "geolocale",
		Short: "Resolve listings and search paths to locales",
		Long: `geolocale answers locale questions over a locale collection: which locale a
listing belongs to, which featured neighborhood a search path points at, and
how geo search rectangles translate into circles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&a.localesFile, "locales", "l", "", "Locale collection file (.json or .geojson)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newDeriveCmd(a),
		newNeighborhoodCmd(a),
		newDistanceCmd(a),
		newCircleCmd(a),
		newTopLevelCmd(a),
		newRootSlugCmd(a),
		newRedirectCmd(a),
		newBenchCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.localesFile != "" {
		cfg.Locales = a.localesFile
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger
	a.out = newPrinter(cmd.OutOrStdout(), a.jsonOutput)
	return nil
}

// resolver loads the configured locale collection and indexes it
func (a *app) resolver() (*resolver.Resolver, error) {
	locales, err := store.Load(a.cfg.Locales)
	if err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"file":    a.cfg.Locales,
		"locales": len(locales),
	}).Debug("locales loaded")

	return resolver.New(locales,
		resolver.WithLogger(a.log),
		resolver.WithCache(a.cfg.Cache.TTL),
		resolver.WithVersion(a.cfg.Locales),
		resolver.WithPartitions(a.cfg.Index.Partitions),
	), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
