package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Sternrassler/apparel-pricing/pkg/logging"
	"github.com/Sternrassler/apparel-pricing/pkg/pricing"
	"github.com/Sternrassler/apparel-pricing/pkg/pricingclient"
	"github.com/Sternrassler/apparel-pricing/pkg/warmup"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

const (
	defaultTimeout = 45 * time.Second

	// fileCacheQuota matches the few megabytes a browser grants local storage.
	fileCacheQuota = 5 << 20

	redisPrefix = "pricectl:"
)

func setupLogging(c *cli.Context) error {
	_, err := logging.Setup(logging.Config{Level: c.String("log-level"), Output: c.App.ErrWriter})
	return err
}

// session is the client and local store of one invocation.
type session struct {
	client *pricingclient.Client
	store  *pricingclient.Store
	close  func()
}

func openStore(c *cli.Context) (*pricingclient.Store, func(), error) {
	if c.Bool("no-cache") {
		return nil, func() {}, nil
	}

	var (
		storage pricingclient.Storage
		closeFn = func() {}
	)
	if addr := c.String("redis-addr"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(c.Context).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis %s: %w", addr, err)
		}
		storage = pricingclient.NewRedisStorage(rdb, redisPrefix)
		closeFn = func() { rdb.Close() }
	} else {
		fs, err := pricingclient.NewFileStorage(c.String("cache-dir"), fileCacheQuota)
		if err != nil {
			return nil, nil, err
		}
		storage = fs
	}

	store, err := pricingclient.NewStore(pricingclient.StoreConfig{
		Storage: storage,
		Logger:  logging.NewLogger(logging.ComponentPricingClient),
	})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}

func openSession(c *cli.Context) (*session, error) {
	store, closeFn, err := openStore(c)
	if err != nil {
		return nil, err
	}
	client, err := pricingclient.New(pricingclient.Config{
		BaseURL: c.String("server"),
		Store:   store,
		Timeout: c.Duration("timeout"),
	})
	if err != nil {
		closeFn()
		return nil, err
	}
	return &session{client: client, store: store, close: closeFn}, nil
}

// withSession opens a session for the command action and closes it after.
func withSession(action func(c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.close()
		return action(c, s)
	}
}

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Value:   "table",
	Usage:   "Output format (table, json)",
}

// =============================================================================
// PRICE COMMAND
// =============================================================================

func priceCommand() *cli.Command {
	return &cli.Command{
		Name:      "price",
		Usage:     "Show pricing of a style",
		ArgsUsage: "STYLE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "color", Aliases: []string{"c"}, Usage: "Color name"},
			&cli.StringFlag{Name: "size", Usage: "Restrict the catalog query to one size"},
			&cli.StringFlag{Name: "inventory-key", Usage: "Inventory key, used with --size-index instead of STYLE"},
			&cli.StringFlag{Name: "size-index", Usage: "Size index, used with --inventory-key"},
			&cli.BoolFlag{Name: "refresh", Usage: "Bypass both cache tiers"},
			&cli.BoolFlag{Name: "stale", Usage: "Accept stale pricing when the catalog fails"},
			formatFlag,
		},
		Action: withSession(runPrice),
	}
}

func runPrice(c *cli.Context, s *session) error {
	req := pricing.Request{
		Style:        c.Args().First(),
		Color:        c.String("color"),
		Size:         c.String("size"),
		InventoryKey: c.String("inventory-key"),
		SizeIndex:    c.String("size-index"),
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: give a STYLE or both --inventory-key and --size-index", err)
	}

	lookup, err := s.client.Pricing(c.Context, req, pricingclient.PricingOptions{
		Refresh:     c.Bool("refresh"),
		AcceptStale: c.Bool("stale"),
	})
	if lookup == nil {
		return err
	}

	out := c.App.Writer
	if c.String("format") == "json" {
		if encErr := writeJSON(out, lookup.Result); encErr != nil {
			return encErr
		}
	} else {
		printPricing(out, lookup)
	}
	// Default pricing is printed, then the failure is reported.
	return err
}

func printPricing(w io.Writer, lookup *pricingclient.PricingLookup) {
	res := lookup.Result
	fmt.Fprintf(w, "%s %s (source: %s)\n", res.Style, res.Color, lookup.Source)
	if res.UnresolvedColor != "" {
		fmt.Fprintf(w, "color %q not found, showing all colors\n", res.UnresolvedColor)
	}
	if res.Meta.HasSale {
		fmt.Fprintf(w, "on sale %s to %s\n", formatDate(res.Meta.SaleStartDate), formatDate(res.Meta.SaleEndDate))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIZE\tPRICE\tSALE\tPROGRAM\tCASE")
	for _, size := range res.Sizes {
		rec, _ := res.Record(size)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			size,
			rec.OriginalPrice.StringFixed(2),
			rec.SalePrice.StringFixed(2),
			rec.ProgramPrice.StringFixed(2),
			rec.CaseSize)
	}
	tw.Flush()

	if len(res.Sizes) == 0 && len(res.ColorPricing) > 0 {
		colors := make([]string, 0, len(res.ColorPricing))
		for color := range res.ColorPricing {
			colors = append(colors, color)
		}
		sort.Strings(colors)
		fmt.Fprintf(w, "colors: %s\n", strings.Join(colors, ", "))
	}
}

func formatDate(d *pricing.Date) string {
	if d == nil {
		return "?"
	}
	return d.Format("2006-01-02")
}

// =============================================================================
// INVENTORY COMMAND
// =============================================================================

func inventoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "inventory",
		Usage:     "Show stock per color and size",
		ArgsUsage: "STYLE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "color", Aliases: []string{"c"}, Usage: "Only show this color"},
			formatFlag,
		},
		Action: withSession(runInventory),
	}
}

func runInventory(c *cli.Context, s *session) error {
	style := strings.TrimSpace(c.Args().First())
	if style == "" {
		return fmt.Errorf("STYLE is required")
	}
	inv, err := s.client.Inventory(c.Context, style)
	if err != nil {
		return err
	}
	if color := c.String("color"); color != "" {
		inv = pricing.Inventory{color: inv[color]}
	}

	out := c.App.Writer
	if c.String("format") == "json" {
		return writeJSON(out, inv)
	}

	colors := make([]string, 0, len(inv))
	for color := range inv {
		colors = append(colors, color)
	}
	sort.Strings(colors)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLOR\tSIZE\tTOTAL")
	for _, color := range colors {
		sizes := make([]string, 0, len(inv[color]))
		for size := range inv[color] {
			sizes = append(sizes, size)
		}
		pricing.SortSizes(sizes)
		for _, size := range sizes {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", color, size, inv[color][size].Total)
		}
	}
	return tw.Flush()
}

// =============================================================================
// AUTOCOMPLETE COMMAND
// =============================================================================

func autocompleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "autocomplete",
		Usage:     "Suggest style numbers for a prefix",
		ArgsUsage: "QUERY",
		Action:    withSession(runAutocomplete),
	}
}

func runAutocomplete(c *cli.Context, s *session) error {
	suggestions, degraded, err := s.client.Autocomplete(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	for _, style := range suggestions {
		fmt.Fprintln(c.App.Writer, style)
	}
	if degraded {
		fmt.Fprintln(c.App.ErrWriter, "(offline suggestions from local cache)")
	}
	return nil
}

// =============================================================================
// INVALIDATE COMMAND
// =============================================================================

func invalidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "invalidate",
		Usage:     "Drop cached pricing of a style on the server and locally",
		ArgsUsage: "STYLE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "color", Aliases: []string{"c"}, Usage: "Color name"},
		},
		Action: withSession(func(c *cli.Context, s *session) error {
			return s.client.Invalidate(c.Context, pricing.Request{
				Style: c.Args().First(),
				Color: c.String("color"),
			})
		}),
	}
}

// =============================================================================
// WARM COMMAND
// =============================================================================

func warmCommand() *cli.Command {
	return &cli.Command{
		Name:      "warm",
		Usage:     "Fetch pricing for many styles so both cache tiers hold it",
		ArgsUsage: "STYLE[/COLOR]...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "concurrency", Value: warmup.DefaultConfig().MaxConcurrency, Usage: "Parallel lookups"},
			&cli.StringFlag{Name: "file", Usage: "Read STYLE[/COLOR] entries from a file, one per line"},
		},
		Action: withSession(runWarm),
	}
}

func runWarm(c *cli.Context, s *session) error {
	entries := c.Args().Slice()
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read warm list: %w", err)
		}
		entries = append(entries, strings.Split(string(data), "\n")...)
	}
	reqs := warmup.ParseStyles(strings.Join(entries, ","))
	if len(reqs) == 0 {
		return fmt.Errorf("nothing to warm")
	}

	bw := warmup.NewBatchWarmer(s.client, warmup.Config{
		MaxConcurrency: c.Int("concurrency"),
		Timeout:        c.Duration("timeout"),
	})
	report, err := bw.Run(c.Context, reqs)
	if report != nil {
		fmt.Fprintf(c.App.Writer, "warmed %d/%d in %s\n", report.Warmed, report.Total, report.Duration.Round(time.Millisecond))
		for _, f := range report.Failed {
			fmt.Fprintf(c.App.Writer, "  %s/%s: %v\n", f.Request.Style, f.Request.Color, f.Err)
		}
	}
	if err != nil {
		return err
	}
	if report.Warmed == 0 {
		return fmt.Errorf("no style could be warmed")
	}
	return nil
}

// =============================================================================
// CACHE COMMAND
// =============================================================================

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local cache",
		Subcommands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Remove every cached entry",
				Action: withSession(runCacheClear),
			},
			{
				Name:  "prune",
				Usage: "Remove expired entries, then the oldest beyond --keep",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "keep", Value: pricingclient.DefaultMaxEntries, Usage: "Entries to keep"},
				},
				Action: withSession(runCachePrune),
			},
		},
	}
}

func runCacheClear(c *cli.Context, s *session) error {
	if s.store == nil {
		return fmt.Errorf("local cache disabled")
	}
	n, err := s.store.Clear(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed %d entries\n", n)
	return nil
}

func runCachePrune(c *cli.Context, s *session) error {
	if s.store == nil {
		return fmt.Errorf("local cache disabled")
	}
	n, err := s.store.Prune(c.Context, c.Int("keep"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "pruned %d entries\n", n)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
