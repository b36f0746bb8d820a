package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"github.com/yourorg/wealthtracker/internal/domain"
	"github.com/yourorg/wealthtracker/internal/format"
	"github.com/yourorg/wealthtracker/internal/trading"
)

// portfolioFlag selects a portfolio by id; zero means the user's first.
type portfolioFlag struct {
	id int64
}

func (p *portfolioFlag) register(f *flag.FlagSet) {
	f.Int64Var(&p.id, "portfolio", 0, "portfolio id (default: your first portfolio)")
}

func (a *app) resolvePortfolio(ctx context.Context, id int64) (domain.Portfolio, error) {
	list, err := a.trading.Portfolios(ctx)
	if err != nil {
		return domain.Portfolio{}, err
	}
	if len(list) == 0 {
		return domain.Portfolio{}, fmt.Errorf("no portfolios yet, create one with portfolios -create")
	}
	if id == 0 {
		return list[0], nil
	}
	for _, p := range list {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Portfolio{}, fmt.Errorf("portfolio %d not found", id)
}

type portfoliosCmd struct {
	create string
	cash   float64
}

func (*portfoliosCmd) Name() string     { return "portfolios" }
func (*portfoliosCmd) Synopsis() string { return "lists or creates simulation portfolios" }
func (*portfoliosCmd) Usage() string {
	return `portfolios [-create <name> -cash <amount>]
`
}

func (c *portfoliosCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.create, "create", "", "create a portfolio with this name")
	f.Float64Var(&c.cash, "cash", 100000, "starting cash for -create")
}

func (c *portfoliosCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		if c.create != "" {
			p, err := a.trading.CreatePortfolio(ctx, domain.CreatePortfolioRequest{Name: c.create, InitialCash: c.cash})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created portfolio %d %q with %s\n", p.ID, p.Name, format.USD(p.InitialCash))
			return nil
		}
		list, err := a.trading.Portfolios(ctx)
		if err != nil {
			return err
		}
		t := newTable([]string{"ID", "Name", "Initial cash", "Cash", "Last trade"}, 2, 3)
		for _, p := range list {
			last := format.Missing
			if p.LastTradeAt != nil {
				last = p.LastTradeAt.Local().Format("2006-01-02 15:04")
			}
			t.Row(strconv.FormatInt(p.ID, 10), p.Name, format.USD(p.InitialCash), format.USD(p.CurrentCash), last)
		}
		printTable(a.out, t)
		return nil
	})
}

type summaryCmd struct {
	portfolio portfolioFlag
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "shows portfolio value and profit/loss" }
func (*summaryCmd) Usage() string    { return "summary [-portfolio <id>]\n" }

func (c *summaryCmd) SetFlags(f *flag.FlagSet) { c.portfolio.register(f) }

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		p, err := a.resolvePortfolio(ctx, c.portfolio.id)
		if err != nil {
			return err
		}
		s, err := a.trading.Summary(ctx, p.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, headerStyle.Render(p.Name))
		t := newTable([]string{"", ""}, 1)
		t.Row("Total value", format.USD(s.TotalValue))
		t.Row("Cash", format.USD(s.Cash))
		t.Row("Equity", format.USD(s.EquityValue))
		t.Row("Total P/L", format.SignedUSD(s.TotalPL)+" ("+format.Ratio(s.TotalPLPercentage)+")")
		if s.TodayRealizedPL != nil {
			t.Row("Realized today", format.SignedUSD(*s.TodayRealizedPL))
		}
		printTable(a.out, t)
		return nil
	})
}

type positionsCmd struct {
	portfolio portfolioFlag
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "lists open positions with unrealized profit/loss" }
func (*positionsCmd) Usage() string    { return "positions [-portfolio <id>]\n" }

func (c *positionsCmd) SetFlags(f *flag.FlagSet) { c.portfolio.register(f) }

func (c *positionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		p, err := a.resolvePortfolio(ctx, c.portfolio.id)
		if err != nil {
			return err
		}
		details, err := a.trading.Portfolio(ctx, p.ID)
		if err != nil {
			return err
		}
		renderPositions(a, trading.Summarize(details.Portfolio, details.Positions))
		return nil
	})
}

func renderPositions(a *app, s domain.PortfolioSummary) {
	if len(s.Positions) == 0 {
		fmt.Fprintln(a.out, mutedStyle.Render("No open positions"))
		return
	}
	t := newTable([]string{"Symbol", "Side", "Qty", "Avg cost", "Price", "Cost", "Value", "Unrealized", "Realized"},
		2, 3, 4, 5, 6, 7, 8)
	for _, p := range s.Positions {
		side := "long"
		if p.IsShort {
			side = "short"
		}
		unrealized := format.Missing
		if p.UnrealizedPL != nil {
			unrealized = format.SignedUSD(*p.UnrealizedPL)
			if p.UnrealizedPLPercentage != nil {
				unrealized += " (" + format.Ratio(*p.UnrealizedPLPercentage) + ")"
			}
		}
		t.Row(p.Symbol, side, format.Quantity(p.Quantity), format.USD(p.AverageCost),
			format.USDPtr(p.CurrentPrice), format.USD(p.TotalCost), format.USDPtr(p.CurrentValue),
			unrealized, format.SignedUSD(p.RealizedPL))
	}
	printTable(a.out, t)
	fmt.Fprintf(a.out, "Equity %s · Cash %s · Total %s\n",
		format.USD(s.EquityValue), format.USD(s.Cash), format.USD(s.TotalValue))
}

type historyCmd struct {
	portfolio portfolioFlag
	page      int
	pageSize  int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "lists transactions, newest first" }
func (*historyCmd) Usage() string {
	return "history [-portfolio <id>] [-page n] [-page-size n]\n"
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	c.portfolio.register(f)
	f.IntVar(&c.page, "page", 1, "page number")
	f.IntVar(&c.pageSize, "page-size", trading.DefaultTransactionsPageSize, "transactions per page")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		p, err := a.resolvePortfolio(ctx, c.portfolio.id)
		if err != nil {
			return err
		}
		txs, err := a.trading.Transactions(ctx, p.ID, c.page, c.pageSize)
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			fmt.Fprintln(a.out, mutedStyle.Render("No transactions"))
			return nil
		}
		t := newTable([]string{"ID", "Time", "Side", "Qty", "Symbol", "Order", "Price", "Fees", "Amount", "Status"}, 3, 6, 7, 8)
		for _, tx := range txs {
			t.Row(strconv.FormatInt(tx.ID, 10), tx.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				strings.ToUpper(string(tx.Type)), format.Quantity(tx.Quantity), tx.Symbol, string(tx.OrderType),
				format.USD(tx.Price), format.USD(tx.Fee), format.USD(tx.TotalAmount), string(tx.Status))
		}
		printTable(a.out, t)
		return nil
	})
}

type ordersCmd struct {
	portfolio portfolioFlag
	cancel    int64
}

func (*ordersCmd) Name() string     { return "orders" }
func (*ordersCmd) Synopsis() string { return "lists open orders or cancels one" }
func (*ordersCmd) Usage() string    { return "orders [-portfolio <id>] [-cancel <order id>]\n" }

func (c *ordersCmd) SetFlags(f *flag.FlagSet) {
	c.portfolio.register(f)
	f.Int64Var(&c.cancel, "cancel", 0, "cancel this order")
}

func (c *ordersCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		if c.cancel != 0 {
			if err := a.trading.CancelOrder(ctx, c.cancel); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Order %d cancelled\n", c.cancel)
			return nil
		}
		p, err := a.resolvePortfolio(ctx, c.portfolio.id)
		if err != nil {
			return err
		}
		orders, err := a.trading.OpenOrders(ctx, p.ID)
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			fmt.Fprintln(a.out, mutedStyle.Render("No open orders"))
			return nil
		}
		t := newTable([]string{"ID", "Placed", "Side", "Qty", "Symbol", "Type", "Limit", "Stop"}, 3, 6, 7)
		for _, o := range orders {
			t.Row(strconv.FormatInt(o.ID, 10), o.CreatedAt.Local().Format("2006-01-02 15:04"),
				strings.ToUpper(string(o.Type)), format.Quantity(o.Quantity), o.Symbol, string(o.OrderType),
				format.USDPtr(o.LimitPrice), format.USDPtr(o.StopPrice))
		}
		printTable(a.out, t)
		return nil
	})
}
