package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	st "github.com/eringen/spacetravelling"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Pre-render the site and serve it over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newApp().Start()
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Pre-render the listing and every post into the page store",
	Long: `build fetches the listing and every post path from Prismic and stores the
rendered pages, so a following serve starts warm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		if err := app.Init(); err != nil {
			return err
		}
		defer app.Close()
		return app.Build(cmd.Context())
	},
}

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the post paths that are pre-rendered at build time",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		if err := app.Init(); err != nil {
			return err
		}
		defer app.Close()
		slugs, err := app.Resolver.ResolvePostPaths(cmd.Context())
		if err != nil {
			return err
		}
		for _, slug := range slugs {
			fmt.Fprintln(cmd.OutOrStdout(), "/post/"+slug)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "spacetravelling %s\n", version)
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge <path>...",
	Short: "Drop generated pages so they are rebuilt on the next request",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp()
		if err := app.Init(); err != nil {
			return err
		}
		defer app.Close()
		return purgePages(app, cmd.OutOrStdout(), args)
	},
}

func purgePages(app *st.App, out io.Writer, paths []string) error {
	for _, path := range paths {
		if _, err := app.Store.GetPage(path); errors.Is(err, st.ErrNotFound) {
			fmt.Fprintf(out, "%s: not generated\n", path)
			continue
		} else if err != nil {
			return err
		}
		if err := app.Pages.Invalidate(path); err != nil {
			return fmt.Errorf("purge %s: %w", path, err)
		}
		fmt.Fprintf(out, "%s: purged\n", path)
	}
	return nil
}
