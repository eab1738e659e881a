package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kass/go-geo-locale/pkg/geo"
	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/kass/go-geo-locale/pkg/pathmatch"
	"github.com/kass/go-geo-locale/pkg/resolver"
	"github.com/kass/go-geo-locale/pkg/store"
	"github.com/spf13/cobra"
)

type deriveResult struct {
	Slug   string         `json:"slug"`
	Step   resolver.Step  `json:"step"`
	Locale *models.Locale `json:"locale"`
}

func newDeriveCmd(a *app) *cobra.Command {
	var (
		lat, lng    float64
		cityState   string
		doorsteps   string
		listingFile string
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the locale a listing belongs to",
		Long: `Derive the most specific locale for a listing from its coordinates, its
city/state slug and its doorsteps URL. A listing payload can be read from a
JSON file; flags override fields found there.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var subject models.Subject
			if listingFile != "" {
				data, err := os.ReadFile(listingFile)
				if err != nil {
					return fmt.Errorf("failed to read listing: %w", err)
				}
				if subject, err = store.SubjectFromJSON(data); err != nil {
					return err
				}
			}

			flags := cmd.Flags()
			if flags.Changed("lat") {
				subject.Lat = &lat
			}
			if flags.Changed("lng") {
				subject.Lng = &lng
			}
			if flags.Changed("city-state") {
				subject.CityStateSlug = cityState
			}
			if flags.Changed("doorsteps") {
				subject.DoorstepsURL = doorsteps
			}

			r, err := a.resolver()
			if err != nil {
				return err
			}

			res := r.Resolve(subject)
			out := deriveResult{Step: res.Step, Locale: res.Locale}
			if res.Locale != nil {
				out.Slug = res.Locale.Slug
			}

			if a.out.json {
				return a.out.encode(out)
			}
			if res.Locale == nil {
				a.out.miss("no locale")
				a.out.field("step", res.Step)
				return nil
			}
			a.out.field("locale", out.Slug)
			if res.Locale.Name != "" {
				a.out.field("name", res.Locale.Name)
			}
			a.out.field("step", res.Step)
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Listing latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Listing longitude")
	cmd.Flags().StringVar(&cityState, "city-state", "", "City/state locale slug")
	cmd.Flags().StringVar(&doorsteps, "doorsteps", "", "Doorsteps search URL")
	cmd.Flags().StringVar(&listingFile, "listing", "", "Listing JSON payload file")
	return cmd
}

func newNeighborhoodCmd(a *app) *cobra.Command {
	var slug, path string

	cmd := &cobra.Command{
		Use:   "neighborhood",
		Short: "Find the featured neighborhood a search path points at",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}

			n := r.FindNeighborhood(slug, path)
			if a.out.json {
				return a.out.encode(n)
			}
			if n == nil {
				a.out.miss("no neighborhood")
				return nil
			}
			a.out.field("name", n.Name)
			a.out.field("search_path", n.SearchPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "locale", "", "Locale slug")
	cmd.Flags().StringVar(&path, "path", "", "Search path")
	cmd.MarkFlagRequired("locale")
	cmd.MarkFlagRequired("path")
	return cmd
}

func newDistanceCmd(a *app) *cobra.Command {
	var miles bool

	cmd := &cobra.Command{
		Use:   "distance [--miles] -- lat1 lng1 lat2 lng2",
		Short: "Great-circle distance between two points",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords := make([]float64, len(args))
			for i, arg := range args {
				v, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid coordinate %q: %w", arg, err)
				}
				coords[i] = v
			}

			unit := "km"
			d := geo.DistanceKm(coords[0], coords[1], coords[2], coords[3])
			if miles {
				unit = "mi"
				d = geo.DistanceMi(coords[0], coords[1], coords[2], coords[3])
			}

			if a.out.json {
				return a.out.encode(map[string]interface{}{"distance": d, "unit": unit})
			}
			a.out.field("distance", geo.FormatNumber(d)+" "+unit)
			return nil
		},
	}

	cmd.Flags().BoolVar(&miles, "miles", false, "Report miles instead of kilometers")
	return cmd
}

func newCircleCmd(a *app) *cobra.Command {
	edges := map[string]*string{
		geo.KeyLatN: new(string),
		geo.KeyLatS: new(string),
		geo.KeyLngE: new(string),
		geo.KeyLngW: new(string),
	}

	cmd := &cobra.Command{
		Use:   "circle [key=value...]",
		Short: "Convert a geo search rectangle into a circle",
		Long: `Convert the lat_n/lat_s/lng_e/lng_w rectangle of a geo search query into the
equivalent lat/lng/radius circle. Extra key=value arguments are carried
through. A rectangle that does not parse leaves the query unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := make(map[string]string, len(args)+len(edges))
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("invalid query parameter %q: want key=value", arg)
				}
				query[k] = v
			}
			for key, v := range edges {
				if cmd.Flags().Changed(flagName(key)) {
					query[key] = *v
				}
			}

			result := geo.QueryRectToCircle(query)
			if a.out.json {
				return a.out.encode(result)
			}

			keys := make([]string, 0, len(result))
			for k := range result {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, len(keys))
			for i, k := range keys {
				pairs[i] = k + "=" + result[k]
			}
			a.out.field("query", strings.Join(pairs, "&"))
			if path, ok := geo.SearchPathFromQuery(result); ok {
				a.out.field("search_path", path)
			}
			return nil
		},
	}

	for key, v := range edges {
		cmd.Flags().StringVar(v, flagName(key), "", "Rectangle edge "+key)
	}
	return cmd
}

// flagName turns a query key such as lat_n into lat-n
func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

func newTopLevelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toplevel",
		Short: "List published top-level locales",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}

			top := r.TopLevel()
			slugs := make([]string, len(top))
			for i, l := range top {
				slugs[i] = l.Slug
			}

			if a.out.json {
				return a.out.encode(slugs)
			}
			a.out.title(fmt.Sprintf("%d top-level locales", len(slugs)))
			a.out.list(slugs)
			return nil
		},
	}
}

func newRootSlugCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "root slug",
		Short: "Find the locale that lists slug as a child, and its root ancestor",
		Long: `Print the slug of the first locale listing slug among its children (slug
itself when none does) and the root ancestor of the locale named slug.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}

			slug := args[0]
			out := struct {
				Slug     string `json:"slug"`
				RootSlug string `json:"root_slug"`
				Ancestor string `json:"ancestor"`
			}{Slug: slug, RootSlug: r.RootSlug(slug)}
			if root := r.Root(slug); root != nil {
				out.Ancestor = root.Slug
			}

			if a.out.json {
				return a.out.encode(out)
			}
			a.out.field("root_slug", out.RootSlug)
			if out.Ancestor == "" {
				a.out.miss("unknown locale " + slug)
				return nil
			}
			a.out.field("ancestor", out.Ancestor)
			return nil
		},
	}
}

func newRedirectCmd(a *app) *cobra.Command {
	var metaFile string

	cmd := &cobra.Command{
		Use:   "redirect path",
		Short: "Resolve a meta-location path to its redirect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if metaFile == "" {
				metaFile = a.cfg.Meta
			}
			if metaFile == "" {
				return fmt.Errorf("no meta-location file: set --meta or meta in config")
			}

			metas, err := store.LoadMetaLocations(metaFile)
			if err != nil {
				return err
			}

			m := pathmatch.FindMetaRedirect(args[0], metas)
			if a.out.json {
				return a.out.encode(m)
			}
			if m == nil {
				a.out.miss("no redirect")
				return nil
			}
			a.out.field("name", m.Name)
			a.out.field("redirect_url", m.RedirectURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&metaFile, "meta", "", "Meta-location JSON file")
	return cmd
}
