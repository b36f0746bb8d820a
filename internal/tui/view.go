package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yourorg/wealthtracker/internal/format"
	"github.com/yourorg/wealthtracker/internal/notify"
)

func (m Model) View() string {
	sections := []string{
		m.viewHeader(),
		m.viewSummary(),
		m.viewPositions(),
		m.viewOrders(),
		m.viewTransactions(),
	}
	main := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if toasts := m.viewToasts(); toasts != "" {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, "  ", toasts)
	}
	return main + "\n" + m.viewHelp() + "\n"
}

func (m Model) viewHeader() string {
	sound := "sound off"
	if m.toasts != nil && m.toasts.SoundEnabled() {
		sound = "sound on"
	}
	meta := labelStyle.Render(fmt.Sprintf("#%d · %s · %s", m.portfolioID, m.mode, sound))
	return titleStyle.Render(m.title) + "  " + meta + "\n"
}

func (m Model) viewSummary() string {
	if m.summaryErr != nil && m.summary == nil {
		return errStyle.Render("Could not load summary: "+m.summaryErr.Error()) + "\n"
	}
	if m.summary == nil {
		return labelStyle.Render("Loading summary...") + "\n"
	}
	s := m.summary
	pl := plStyle(s.TotalPL).Render(fmt.Sprintf("%s (%s)", format.SignedUSD(s.TotalPL), format.Ratio(s.TotalPLPercentage)))
	rows := []string{
		labelStyle.Render("Total value  ") + format.USD(s.TotalValue),
		labelStyle.Render("Cash         ") + format.USD(s.Cash),
		labelStyle.Render("Equity       ") + format.USD(s.EquityValue),
		labelStyle.Render("Total P/L    ") + pl,
	}
	if s.TodayRealizedPL != nil {
		rows = append(rows, labelStyle.Render("Realized     ")+format.SignedUSD(*s.TodayRealizedPL))
	}
	return cardStyle.Render(strings.Join(rows, "\n"))
}

func plStyle(v float64) lipgloss.Style {
	if v < 0 {
		return lossStyle
	}
	return gainStyle
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(palette.Border)).
		Headers(headers...)
}

func (m Model) viewPositions() string {
	if m.summary == nil || len(m.summary.Positions) == 0 {
		return ""
	}
	t := newTable("Symbol", "Side", "Qty", "Avg cost", "Price", "Value", "Unrealized")
	for _, p := range m.summary.Positions {
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
			format.USDPtr(p.CurrentPrice), format.USDPtr(p.CurrentValue), unrealized)
	}
	return "\n" + titleStyle.Render("Positions") + "\n" + t.String()
}

func (m Model) viewOrders() string {
	if len(m.openOrders) == 0 {
		return "\n" + labelStyle.Render("No open orders")
	}
	t := newTable("ID", "Side", "Qty", "Symbol", "Type", "Limit", "Stop")
	for _, o := range m.openOrders {
		t.Row(fmt.Sprint(o.ID), strings.ToUpper(string(o.Type)), format.Quantity(o.Quantity),
			o.Symbol, string(o.OrderType), format.USDPtr(o.LimitPrice), format.USDPtr(o.StopPrice))
	}
	return "\n" + titleStyle.Render("Open orders") + "\n" + t.String()
}

func (m Model) viewTransactions() string {
	if len(m.transactions) == 0 {
		return "\n" + labelStyle.Render("No transactions yet")
	}
	t := newTable("Time", "Side", "Qty", "Symbol", "Price", "Fees", "Status")
	for i, tx := range m.transactions {
		if i == recentRows {
			break
		}
		t.Row(tx.CreatedAt.Local().Format("15:04:05"), strings.ToUpper(string(tx.Type)),
			format.Quantity(tx.Quantity), tx.Symbol, format.USD(tx.Price), format.USD(tx.Fee), string(tx.Status))
	}
	return "\n" + titleStyle.Render("Recent transactions") + "\n" + t.String()
}

func toastColor(v notify.Variant) lipgloss.Color {
	switch v {
	case notify.VariantSuccess:
		return palette.Success
	case notify.VariantWarning:
		return palette.Warning
	case notify.VariantDestructive:
		return palette.Error
	}
	return palette.Border
}

func (m Model) viewToasts() string {
	if len(m.toastList) == 0 {
		return ""
	}
	cards := make([]string, 0, len(m.toastList))
	for _, t := range m.toastList {
		body := lipgloss.NewStyle().Bold(true).Render(t.Title)
		if t.Description != "" {
			body += "\n" + t.Description
		}
		footer := fmt.Sprintf("%ds ago", int(t.Age(m.now).Seconds()))
		if t.ActionLabel != "" {
			footer = t.ActionLabel + " · " + footer
		}
		body += "\n" + labelStyle.Render(footer)
		cards = append(cards, cardStyle.BorderForeground(toastColor(t.Variant)).Width(40).Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (m Model) viewHelp() string {
	parts := make([]string, 0, len(keys.help()))
	for _, b := range keys.help() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return labelStyle.Render(strings.Join(parts, " · "))
}
