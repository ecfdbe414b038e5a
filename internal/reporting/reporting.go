// Package reporting formats gate-veto and fill log lines for human
// consumption, using golang.org/x/text for locale-correct currency and
// number formatting rather than hand-rolled fmt.Sprintf thousands-grouping.
package reporting

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders money and percentage values for a fixed locale.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// New returns a Formatter for American English / USD, the only locale the
// engine currently needs.
func New() *Formatter {
	return &Formatter{
		printer: message.NewPrinter(language.AmericanEnglish),
		unit:    currency.USD,
	}
}

// Money formats amount as a grouped, two-decimal USD string, e.g. "$101,000.00".
func (f *Formatter) Money(amount float64) string {
	amt := currency.USD.Amount(amount)
	return f.printer.Sprintf("%v", currency.Symbol(amt))
}

// Percent formats pct (already in percentage units, e.g. -8.0) to two
// decimals with an explicit sign, e.g. "-8.00%".
func (f *Formatter) Percent(pct float64) string {
	return f.printer.Sprintf("%+.2f%%", pct)
}

// Shares formats a share count with thousands separators, e.g. "1,250".
func (f *Formatter) Shares(qty int) string {
	return f.printer.Sprintf("%d", qty)
}

// VetoLine renders one gate-pipeline rejection for logs/audit messages.
func (f *Formatter) VetoLine(symbol, stage, reason string) string {
	return fmt.Sprintf("%s vetoed at %s: %s", symbol, stage, reason)
}

// FillLine renders one fill confirmation with formatted money and shares.
func (f *Formatter) FillLine(symbol, side string, qty int, price float64, slippageBps float64) string {
	return fmt.Sprintf("%s %s %s @ %s (slippage %.1fbps)", symbol, side, f.Shares(qty), f.Money(price), slippageBps)
}
