package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/google/subcommands"

	"github.com/yourorg/wealthtracker/internal/domain"
	"github.com/yourorg/wealthtracker/internal/format"
	"github.com/yourorg/wealthtracker/internal/scanner"
	"github.com/yourorg/wealthtracker/internal/trading"
)

type tradeCmd struct {
	portfolio   portfolioFlag
	action      string
	orderType   string
	quantity    int64
	price       float64
	limit       float64
	stop        float64
	exchange    string
	fromScanner string
	dryRun      bool
}

func (*tradeCmd) Name() string     { return "trade" }
func (*tradeCmd) Synopsis() string { return "estimates fees for and places an order" }
func (*tradeCmd) Usage() string {
	return `trade [flags] <symbol>

The order is priced from -price, from the named scanner (-from-scanner) or
from the last price seen by scan. Limit orders default to a marketable
limit just through that price.
`
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	c.portfolio.register(f)
	f.StringVar(&c.action, "action", "buy", "buy, sell, short or cover")
	f.StringVar(&c.orderType, "type", "market", "market, limit or stopLoss")
	f.Int64Var(&c.quantity, "qty", 0, "whole shares")
	f.Float64Var(&c.price, "price", 0, "current price")
	f.Float64Var(&c.limit, "limit", 0, "limit price (limit orders)")
	f.Float64Var(&c.stop, "stop", 0, "stop price (stop-loss orders)")
	f.StringVar(&c.exchange, "exchange", "", "listing exchange")
	f.StringVar(&c.fromScanner, "from-scanner", "", "take the price from this scanner's results")
	f.BoolVar(&c.dryRun, "dry-run", false, "only show the estimate")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if f.NArg() != 1 {
			return usagef("trade takes exactly one symbol")
		}
		action, ok := domain.ParseTransactionType(c.action)
		if !ok {
			return usagef("unknown action %q", c.action)
		}
		orderType, ok := domain.ParseOrderType(c.orderType)
		if !ok {
			return usagef("unknown order type %q", c.orderType)
		}
		symbol := strings.ToUpper(strings.TrimSpace(f.Arg(0)))

		price, exchange, err := a.quotePrice(ctx, symbol, c.price, c.fromScanner)
		if err != nil {
			return err
		}
		if c.exchange != "" {
			exchange = c.exchange
		}

		form := trading.NewOrderForm(symbol, exchange, price)
		form.SetAction(action)
		form.SetOrderType(orderType)
		form.SetQuantity(c.quantity)
		if c.limit > 0 {
			form.SetLimitPrice(c.limit)
		}
		if c.stop > 0 {
			form.SetStopPrice(c.stop)
		}

		printEstimate(a.out, form)
		if c.dryRun {
			return nil
		}
		if err := a.requireSession(); err != nil {
			return err
		}
		p, err := a.resolvePortfolio(ctx, c.portfolio.id)
		if err != nil {
			return err
		}
		tx, err := form.Submit(ctx, a.trading, p.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Order submitted: %s %s %s · %s (transaction %d)\n",
			strings.ToUpper(string(tx.Type)), format.Quantity(tx.Quantity), tx.Symbol, tx.Status, tx.ID)
		return nil
	})
}

// quotePrice resolves the ticket price: explicit, from a scanner run, or
// from the quote cache.
func (a *app) quotePrice(ctx context.Context, symbol string, explicit float64, scannerID string) (float64, string, error) {
	if explicit > 0 {
		return explicit, "", nil
	}
	if scannerID != "" {
		def, ok := scanner.Lookup(scannerID)
		if !ok {
			return 0, "", usagef("unknown scanner %q", scannerID)
		}
		resp, err := a.scanner.Run(ctx, def.ID, def.Defaults)
		if err != nil {
			return 0, "", err
		}
		a.rememberQuotes(resp)
		price, ok := scanner.PriceOf(resp.Results, symbol)
		if !ok {
			return 0, "", fmt.Errorf("%s is not in the %s results", symbol, def.Title)
		}
		return price, "", nil
	}
	q, ok, err := a.quotes.Get(ctx, symbol)
	if err != nil {
		return 0, "", err
	}
	if !ok {
		return 0, "", usagef("no recent price for %s, pass -price or -from-scanner", symbol)
	}
	return q.Price, q.Exchange, nil
}

func printEstimate(w io.Writer, form *trading.OrderForm) {
	t := newTable([]string{"", ""}, 1)
	t.Row("Order", fmt.Sprintf("%s %d %s · %s", strings.ToUpper(string(form.Action())), form.Quantity(), form.Symbol, form.OrderType()))
	t.Row("Price", format.USD(form.CurrentPrice()))
	if form.OrderType() == domain.OrderLimit {
		if limit, ok := form.LimitPrice(); ok {
			label := "Limit"
			if !form.LimitOverridden() {
				label = "Limit (marketable)"
			}
			t.Row(label, format.USD(limit))
		}
	}
	if e, ok := form.Estimate(); ok {
		t.Row("Commission", format.USD(e.Commission.InexactFloat64()))
		t.Row("TAF fee", format.USD(e.TAFFee.InexactFloat64()))
		t.Row("SEC fee", format.USD(e.SECFee.InexactFloat64()))
		t.Row("Locate fee", format.USD(e.LocateFee.InexactFloat64()))
		t.Row("Total fees", format.USD(e.TotalFees.InexactFloat64()))
		t.Row("Estimated total", format.USD(e.Total.InexactFloat64()))
	} else {
		t.Row("Estimate", format.Missing)
	}
	printTable(w, t)
}
