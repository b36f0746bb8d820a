package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/yourorg/wealthtracker/internal/scanner"
	"github.com/yourorg/wealthtracker/internal/storage"
)

type scannersCmd struct{}

func (*scannersCmd) Name() string           { return "scanners" }
func (*scannersCmd) Synopsis() string       { return "lists the available market scanners" }
func (*scannersCmd) Usage() string          { return "scanners\n" }
func (*scannersCmd) SetFlags(*flag.FlagSet) {}

func (c *scannersCmd) Execute(_ context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envFrom(args)
	t := newTable([]string{"ID", "Title", "Description", "Default sort"})
	for _, def := range scanner.All() {
		t.Row(def.ID, def.Title, def.Description, def.DefaultSort.Key+" "+string(def.DefaultSort.Direction))
	}
	printTable(e.out, t)
	return subcommands.ExitSuccess
}

// filterFlags collects repeated -set name=value flags.
type filterFlags []string

func (f *filterFlags) String() string     { return strings.Join(*f, ",") }
func (f *filterFlags) Set(v string) error { *f = append(*f, v); return nil }

type scanCmd struct {
	filters  filterFlags
	symbol   string
	sortKey  string
	dir      string
	page     int
	pageSize int
	follow   bool
}

func (*scanCmd) Name() string     { return "scan" }
func (*scanCmd) Synopsis() string { return "runs a market scanner" }
func (*scanCmd) Usage() string {
	return `scan [flags] <scanner-id>

Runs a scanner with its default filters, overridden by -set name=value.
Use "scanners" for the list of ids. With -follow the table is refreshed
when the server's data goes stale.
`
}

func (c *scanCmd) SetFlags(f *flag.FlagSet) {
	f.Var(&c.filters, "set", "override a filter, name=value (repeatable)")
	f.StringVar(&c.symbol, "filter", "", "only show symbols containing this text")
	f.StringVar(&c.sortKey, "sort", "", "column key to sort by (default: scanner's default)")
	f.StringVar(&c.dir, "dir", "", "sort direction, asc or desc")
	f.IntVar(&c.page, "page", 1, "page number")
	f.IntVar(&c.pageSize, "page-size", 0, "rows per page (default: the limit filter)")
	f.BoolVar(&c.follow, "follow", false, "keep refreshing")
}

func (c *scanCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if f.NArg() != 1 {
			return usagef("scan takes exactly one scanner id")
		}
		def, ok := scanner.Lookup(f.Arg(0))
		if !ok {
			return usagef("unknown scanner %q", f.Arg(0))
		}
		req, err := c.request(def)
		if err != nil {
			return err
		}
		view, err := c.view(def, req)
		if err != nil {
			return err
		}

		fetch := func(ctx context.Context) (*scanner.Response, error) {
			return a.scanner.Run(ctx, def.ID, req)
		}
		if !c.follow {
			resp, err := fetch(ctx)
			if err != nil {
				return err
			}
			a.showScan(view, resp)
			return nil
		}

		refresher := scanner.NewRefresher(a.cfg.ScannerRefresh)
		err = refresher.Follow(ctx, fetch, func(resp *scanner.Response, err error) {
			if err != nil {
				fmt.Fprintf(a.errOut, "Error: %v\n", err)
				return
			}
			fmt.Fprintf(a.out, "\n%s\n", mutedStyle.Render(time.Now().Format("15:04:05")))
			a.showScan(view, resp)
		}, a.logger)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

func (c *scanCmd) request(def scanner.Definition) (scanner.Request, error) {
	req := def.Defaults
	for _, kv := range c.filters {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return req, usagef("-set expects name=value, got %q", kv)
		}
		if err := req.Set(strings.TrimSpace(name), value); err != nil {
			return req, usagef("%v", err)
		}
	}
	return req, nil
}

func (c *scanCmd) view(def scanner.Definition, req scanner.Request) (*scanner.View, error) {
	view := scanner.NewView(def)
	if c.sortKey != "" || c.dir != "" {
		s := def.DefaultSort
		if c.sortKey != "" {
			if _, ok := def.Column(c.sortKey); !ok {
				return nil, usagef("scanner %s has no column %q", def.ID, c.sortKey)
			}
			s.Key = c.sortKey
		}
		if c.dir != "" {
			d, ok := scanner.ParseDirection(c.dir)
			if !ok {
				return nil, usagef("-dir must be asc or desc")
			}
			s.Direction = d
		}
		view.SetSort(s)
	}
	size := c.pageSize
	if size <= 0 {
		size = req.PageSize()
	}
	view.SetPageSize(size)
	view.SetFilter(c.symbol)
	view.SetPage(c.page - 1)
	return view, nil
}

func (a *app) showScan(view *scanner.View, resp *scanner.Response) {
	view.SetRows(resp.Results)
	a.rememberQuotes(resp)
	renderScannerPage(a.out, view.Definition(), view.Page(), view.Sort())
	if resp.AsOf != nil {
		fmt.Fprintln(a.out, mutedStyle.Render("as of "+resp.AsOf.Local().Format(time.RFC1123)))
	}
	if resp.Cache != nil && resp.Cache.IsStale {
		fmt.Fprintln(a.out, mutedStyle.Render("data is stale"))
	}
}

// rememberQuotes caches each row's price so trade can price a ticket later.
func (a *app) rememberQuotes(resp *scanner.Response) {
	asOf := time.Now()
	if resp.AsOf != nil {
		asOf = *resp.AsOf
	}
	for _, r := range resp.Results {
		price, ok := r.Float("price")
		if !ok || r.Symbol() == "" {
			continue
		}
		exchange, _ := r["exchange"].(string)
		q := storage.Quote{Symbol: r.Symbol(), Exchange: exchange, Price: price, AsOf: asOf}
		if err := a.quotes.Put(context.Background(), q); err != nil {
			a.logger.Warn("cache quote failed", "symbol", q.Symbol, "err", err)
			return
		}
	}
}
