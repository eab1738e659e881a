package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/kass/go-geo-locale/pkg/postgis"
	"github.com/kass/go-geo-locale/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the locale file into PostGIS",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = a.cfg.PostGIS.ConnString()
			}

			locales, err := store.Load(a.cfg.Locales)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := postgis.NewLocaleStore(ctx, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.InitSchema(ctx); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}

			start := time.Now()
			if err := db.UpsertLocales(ctx, locales); err != nil {
				return err
			}
			count, err := db.Count(ctx)
			if err != nil {
				return err
			}

			a.log.WithFields(logrus.Fields{
				"file":    a.cfg.Locales,
				"written": len(locales),
				"stored":  count,
				"elapsed": time.Since(start),
			}).Info("locales imported")

			if a.out.json {
				return a.out.encode(map[string]int64{"written": int64(len(locales)), "stored": count})
			}
			a.out.stat("Written", len(locales))
			a.out.stat("Stored", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "PostGIS connection string (default from config)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		dsn, outFile string
		fromPostGIS  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write locales as GeoJSON",
		Long: `Write the locale collection as a GeoJSON FeatureCollection. Locales are read
from the locale file unless --postgis or --dsn is set. With --postgis and no
--dsn the connection comes from config, as for import.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				locales []*models.Locale
				err     error
			)
			if fromPostGIS && dsn == "" {
				dsn = a.cfg.PostGIS.ConnString()
			}
			if dsn == "" {
				locales, err = store.Load(a.cfg.Locales)
			} else {
				ctx := cmd.Context()
				db, dbErr := postgis.NewLocaleStore(ctx, dsn)
				if dbErr != nil {
					return dbErr
				}
				defer db.Close()
				locales, err = db.LoadLocales(ctx)
			}
			if err != nil {
				return err
			}

			data, err := store.EncodeGeoJSON(locales)
			if err != nil {
				return err
			}

			if outFile == "" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(outFile, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outFile, err)
			}
			a.log.WithField("file", outFile).Infof("exported %d locales", len(locales))
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "Read from PostGIS at this connection string")
	cmd.Flags().BoolVar(&fromPostGIS, "postgis", false, "Read from the configured PostGIS database")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Output file (default stdout)")
	return cmd
}
