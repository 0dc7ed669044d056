package main

import (
	"testing"

	"github.com/poiesic/gamescout/ai"
	"github.com/poiesic/gamescout/core"
	"github.com/poiesic/gamescout/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findStringFlag(flags []cli.Flag, name string) *cli.StringFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func findIntFlag(flags []cli.Flag, name string) *cli.IntFlag {
	for _, flag := range flags {
		if f, ok := flag.(*cli.IntFlag); ok && f.Name == name {
			return f
		}
	}
	return nil
}

func TestAppFlags(t *testing.T) {
	app := newApp()

	t.Run("data-dir reads GAMESCOUT_DATA_DIR", func(t *testing.T) {
		flag := findStringFlag(app.Flags, "data-dir")
		require.NotNil(t, flag)
		assert.Equal(t, "data", flag.Value)
		assert.Equal(t, []string{"GAMESCOUT_DATA_DIR"}, flag.EnvVars)
	})

	t.Run("proxy settings come from the environment", func(t *testing.T) {
		proxy := findStringFlag(app.Flags, "proxy")
		require.NotNil(t, proxy)
		assert.Equal(t, []string{"PROXY"}, proxy.EnvVars)

		auth := findStringFlag(app.Flags, "proxy-auth")
		require.NotNil(t, auth)
		assert.Equal(t, []string{"PROXY_AUTH"}, auth.EnvVars)
	})

	t.Run("embedding defaults match the AI config", func(t *testing.T) {
		defaults := ai.DefaultConfig()

		host := findStringFlag(app.Flags, "embedding-host")
		require.NotNil(t, host)
		assert.Equal(t, defaults.EmbeddingHost, host.Value)

		model := findStringFlag(app.Flags, "embedding-model")
		require.NotNil(t, model)
		assert.Equal(t, defaults.EmbeddingModel, model.Value)

		dims := findIntFlag(app.Flags, "embedding-dimensions")
		require.NotNil(t, dims)
		assert.Equal(t, defaults.Dimensions, dims.Value)
	})

	t.Run("pg-dsn has no default", func(t *testing.T) {
		flag := findStringFlag(app.Flags, "pg-dsn")
		require.NotNil(t, flag)
		assert.Empty(t, flag.Value)
		assert.Equal(t, []string{"PG_DSN"}, flag.EnvVars)
	})

	t.Run("every stage has a command", func(t *testing.T) {
		var names []string
		for _, cmd := range app.Commands {
			names = append(names, cmd.Name)
		}
		assert.Equal(t, []string{"sync-ids", "fetch", "silver", "gold", "embed", "search", "serve", "run"}, names)
	})

	t.Run("search limit defaults to the searcher default", func(t *testing.T) {
		flag := findIntFlag(searchFlags(), "limit")
		require.NotNil(t, flag)
		assert.Equal(t, search.DefaultLimit, flag.Value)
	})
}

func runFilter(t *testing.T, args ...string) core.SearchFilter {
	t.Helper()
	var got core.SearchFilter
	app := &cli.App{
		Name: "gamescout",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Flags: searchFlags(),
				Action: func(c *cli.Context) error {
					got = filterFromFlags(c)
					return nil
				},
			},
		},
	}
	require.NoError(t, app.Run(append([]string{"gamescout", "search"}, args...)))
	return got
}

func TestFilterFromFlags(t *testing.T) {
	t.Run("all filters", func(t *testing.T) {
		got := runFilter(t,
			"--category", "Single-player", "--category", "Co-op",
			"--genre", "Action",
			"--price-min", "1.5", "--price-max", "20",
			"--limit", "5",
			"space", "shooter")
		assert.Equal(t, []string{"Single-player", "Co-op"}, got.Categories)
		assert.Equal(t, []string{"Action"}, got.Genres)
		assert.Equal(t, 1.5, got.PriceMin)
		assert.Equal(t, 20.0, got.PriceMax)
		assert.Equal(t, 5, got.Limit)
	})

	t.Run("defaults are unrestricted", func(t *testing.T) {
		got := runFilter(t, "puzzle")
		assert.Empty(t, got.Categories)
		assert.Empty(t, got.Genres)
		assert.Zero(t, got.PriceMin)
		assert.Zero(t, got.PriceMax)
		assert.Equal(t, search.DefaultLimit, got.Limit)
	})
}

func TestCatalogOptions(t *testing.T) {
	t.Run("defaults produce the base options", func(t *testing.T) {
		var count int
		app := newApp()
		app.Commands = append(app.Commands, &cli.Command{
			Name:  "options",
			Flags: append(fetchFlags(), embedFlags()...),
			Action: func(c *cli.Context) error {
				opts, err := catalogOptions(c)
				count = len(opts)
				return err
			},
		})
		require.NoError(t, app.Run([]string{"gamescout", "options"}))
		assert.Equal(t, 5, count)
	})

	t.Run("stage flags add options", func(t *testing.T) {
		var count int
		app := newApp()
		app.Commands = append(app.Commands, &cli.Command{
			Name:  "options",
			Flags: append(append(fetchFlags(), goldFlags()...), embedFlags()...),
			Action: func(c *cli.Context) error {
				opts, err := catalogOptions(c)
				count = len(opts)
				return err
			},
		})
		err := app.Run([]string{"gamescout", "options",
			"--workers", "2", "--max-tries", "4", "--similarity-threshold", "80", "--batch-size", "50"})
		require.NoError(t, err)
		assert.Equal(t, 9, count)
	})
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "invalid embedding dimensions",
			args:    []string{"gamescout", "--embedding-dimensions", "7", "sync-ids"},
			wantErr: "invalid AI configuration",
		},
		{
			name:    "zero workers",
			args:    []string{"gamescout", "fetch", "--workers", "0"},
			wantErr: "workers must be greater than 0",
		},
		{
			name:    "zero concurrency",
			args:    []string{"gamescout", "fetch", "--concurrency", "0"},
			wantErr: "concurrency must be greater than 0",
		},
		{
			name:    "threshold out of range",
			args:    []string{"gamescout", "gold", "--similarity-threshold", "101"},
			wantErr: "similarity-threshold must be between 0 and 100",
		},
		{
			name:    "zero batch size",
			args:    []string{"gamescout", "embed", "--batch-size", "0"},
			wantErr: "batch-size must be greater than 0",
		},
		{
			name:    "search without query",
			args:    []string{"gamescout", "search", "--genre", "Action"},
			wantErr: "search query is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GAMESCOUT_DATA_DIR", t.TempDir())
			err := newApp().Run(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEmbeddingDimensionsFromEnvironment(t *testing.T) {
	t.Setenv("GAMESCOUT_DATA_DIR", t.TempDir())
	t.Setenv("EMBEDDING_DIMENSIONS", "42")
	err := newApp().Run([]string{"gamescout", "silver"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid AI configuration")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				err := app.Run([]string{"test", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"gamescout", "--log-level", "verbose", "silver"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
		assert.Contains(t, err.Error(), "verbose")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		flag := findStringFlag(newApp().Flags, "log-level")
		require.NotNil(t, flag)
		assert.Equal(t, []string{"l"}, flag.Aliases)
	})
}
