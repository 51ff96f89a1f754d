package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/c3p0-box/translations/bundle"
	"github.com/c3p0-box/translations/erm"
	"github.com/c3p0-box/translations/locale"
	"github.com/c3p0-box/translations/preview"
	"github.com/c3p0-box/translations/schema"
	"github.com/c3p0-box/translations/srv"
	"github.com/c3p0-box/translations/store"
)

// app carries the configuration and logger shared by every subcommand.
type app struct {
	cfg    *config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	var (
		translationsDir string
		schemaDir       string
		dsn             string
		locales         []string
		exact           bool
	)

	root := &cobra.Command{
		Use:           "msgbundle",
		Short:         "Check, render and serve localized message bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("translations") {
				cfg.TranslationsDir = translationsDir
			}
			if flags.Changed("schemas") {
				cfg.SchemaDir = schemaDir
			}
			if flags.Changed("dsn") {
				cfg.DSN = dsn
			}
			if flags.Changed("locales") {
				cfg.Locales = locales
			}
			if flags.Changed("exact") {
				cfg.Exact = exact
			}

			a.cfg = cfg
			a.logger = newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&translationsDir, "translations", "", "directory of translation files (TRANSLATIONS_DIR)")
	pf.StringVar(&schemaDir, "schemas", "", "directory of operation declarations (SCHEMA_DIR)")
	pf.StringVar(&dsn, "dsn", "", "database holding the translations (TRANSLATIONS_DSN)")
	pf.StringSliceVar(&locales, "locales", nil, "locales to check or serve (TRANSLATIONS_LOCALES)")
	pf.BoolVar(&exact, "exact", false, "require templates for the exact locale, no fallback (EXACT_LOCALE)")

	root.AddCommand(
		a.checkCommand(),
		a.renderCommand(),
		a.serveCommand(),
		a.migrateCommand(),
	)

	return root
}

// openStore returns the SQL store when a DSN is configured and the file
// store otherwise, wrapped for logging. The returned func releases the
// database.
func (a *app) openStore() (store.Store, func() error, error) {
	if a.cfg.DSN == "" {
		s := store.NewFSStore(os.DirFS(a.cfg.TranslationsDir), ".")
		return store.Logged(s, a.logger), func() error { return nil }, nil
	}

	db, err := sql.Open("pgx", a.cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	sqlStore, err := store.NewSQLStore(db, a.cfg.Table)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.Logged(sqlStore, a.logger), db.Close, nil
}

func (a *app) loadSchemas() ([]*bundle.OperationSet, error) {
	sets, err := schema.LoadDir(os.DirFS(a.cfg.SchemaDir), ".")
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, erm.Invalid(fmt.Sprintf("no operation declarations in %s", a.cfg.SchemaDir), nil)
	}
	return sets, nil
}

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate every declared bundle against its translations",
		Long: "Loads every declared bundle for every configured locale and reports\n" +
			"missing templates, extra keys, arity mismatches and malformed patterns.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := a.loadSchemas()
			if err != nil {
				return err
			}
			locales, err := a.cfg.locales()
			if err != nil {
				return err
			}
			s, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			cache := bundle.NewCache(s, bundle.WithLogger(a.logger))
			cfg := a.cfg.configuration()
			failed := erm.New(erm.KindInvalid, "bundle check failed", nil)
			for _, set := range sets {
				for _, loc := range locales {
					name := store.Name(set.BundleID(), loc.ExactSuffix())
					b, err := cache.Get(cmd.Context(), set, loc, cfg)
					if err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %s\n", name, err)
						failed.AddError(erm.Wrap(err))
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%d operations)\n", name, b.Len())
				}
			}
			if failed.HasErrors() {
				return fmt.Errorf("%d of %d bundles failed", len(failed.AllErrors()), len(sets)*len(locales))
			}
			return nil
		},
	}
}

func (a *app) renderCommand() *cobra.Command {
	var loc string
	cmd := &cobra.Command{
		Use:   "render BUNDLE OPERATION [ARG...]",
		Short: "Render one operation of a bundle",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := a.loadSchemas()
			if err != nil {
				return err
			}
			var set *bundle.OperationSet
			for _, s := range sets {
				if s.BundleID() == args[0] {
					set = s
				}
			}
			if set == nil {
				return erm.ResourceNotFound(args[0], "")
			}

			l, err := locale.Parse(loc)
			if err != nil {
				return err
			}
			s, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			b, err := bundle.NewCache(s, bundle.WithLogger(a.logger)).Get(cmd.Context(), set, l, a.cfg.configuration())
			if err != nil {
				return err
			}
			spec, values, err := bundle.ParseArgs(set, args[1], args[2:])
			if err != nil {
				return err
			}
			fn, _ := b.Lookup(spec.Signature())
			text, err := fn(values...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&loc, "locale", "", "locale to render for, root when empty")
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the translation preview over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := a.loadSchemas()
			if err != nil {
				return err
			}
			fallback, err := locale.Parse(a.cfg.Fallback)
			if err != nil {
				return err
			}
			supported, err := a.cfg.locales()
			if err != nil {
				return err
			}
			s, closeStore, err := a.openStore()
			if err != nil {
				return err
			}

			svc := bundle.NewService(bundle.NewCache(s, bundle.WithLogger(a.logger)), a.cfg.configuration(), fallback)
			handler := srv.MiddlewareChain(
				srv.Logging,
				srv.Recover,
				srv.CORS(srv.CORSConfig{AllowOrigins: a.cfg.HTTP.CORSOrigins}),
				srv.Locale(fallback, supportedLocales(fallback, supported)...),
			)(preview.Handler(svc, sets...))

			return srv.RunServer(cmd.Context(), handler, a.cfg.HTTP.Host, a.cfg.HTTP.Port, closeStore)
		},
	}
}

// supportedLocales lists the negotiable locales, the fallback first.
func supportedLocales(fallback locale.Locale, configured []locale.Locale) []locale.Locale {
	out := []locale.Locale{fallback}
	for _, l := range configured {
		if !l.IsZero() && l != fallback {
			out = append(out, l)
		}
	}
	return out
}

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the translations table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(a.cfg.DSN) == "" {
				return erm.Invalid("migrate needs TRANSLATIONS_DSN or --dsn", nil)
			}
			return store.Migrate(a.cfg.DSN, a.logger)
		},
	}
}
