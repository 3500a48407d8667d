// pricectl queries a pricing server from the command line, mirroring its
// answers into a local client-side cache.
//
// Usage:
//
//	pricectl price PC61 --color White
//	pricectl inventory PC61
//	pricectl autocomplete pc
//	pricectl warm PC61/White J790
//	pricectl cache clear
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pricectl",
		Usage:   "Query apparel pricing and inventory",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "Pricing server base URL",
				EnvVars: []string{"PRICING_SERVER"},
			},
			&cli.StringFlag{
				Name:    "cache-dir",
				Value:   defaultCacheDir(),
				Usage:   "Directory of the local cache",
				EnvVars: []string{"PRICECTL_CACHE_DIR"},
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Keep the local cache in Redis at this address instead of cache-dir",
				EnvVars: []string{"PRICECTL_REDIS_ADDR"},
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Always ask the server",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: defaultTimeout,
				Usage: "HTTP timeout per call",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"PRICECTL_LOG_LEVEL"},
			},
		},

		Before: setupLogging,

		Commands: []*cli.Command{
			priceCommand(),
			inventoryCommand(),
			autocompleteCommand(),
			invalidateCommand(),
			warmCommand(),
			cacheCommand(),
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pricectl")
}
