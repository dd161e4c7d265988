package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/backtester/internal/backtest"
	"github.com/alejandrodnm/backtester/internal/domain"
)

// Console implementa ports.Reporter.
type Console struct {
	out          io.Writer
	transactions bool
}

// NewConsole crea un reporter que escribe a stdout.
// transactions=true imprime también la tabla del ledger.
func NewConsole(transactions bool) *Console {
	return &Console{out: os.Stdout, transactions: transactions}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, transactions bool) *Console {
	return &Console{out: w, transactions: transactions}
}

// Report imprime el resumen del run y, si está activado, su ledger.
func (c *Console) Report(_ context.Context, run domain.RunResult) error {
	fmt.Fprintf(c.out, "\n[%s] %s | %s | fee %.4f | %d closings\n",
		run.StartedAt.Local().Format("15:04:05"), run.Symbol, run.Strategy, run.Fee, run.Closings)
	fmt.Fprintf(c.out, "  hold $%.4f | strategy $%.4f | excess %+.4f | %d trades | %s\n",
		run.Baseline, run.FinalEquity, run.Excess(), len(run.Transactions), run.Verdict())

	if !c.transactions {
		return nil
	}
	if len(run.Transactions) == 0 {
		fmt.Fprintln(c.out, "  no transactions")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Side", "Time", "Price")
	for i, t := range run.Transactions {
		table.Append(
			fmt.Sprintf("%d", i+1),
			t.Side(),
			fmt.Sprintf("%.3f", t.Time),
			fmt.Sprintf("%.4f", t.Price),
		)
	}
	table.Render()
	return nil
}

// PrintSweep imprime el ranking de un barrido de parámetros.
func (c *Console) PrintSweep(symbol string, results []backtest.SweepResult, top int) {
	if len(results) == 0 {
		fmt.Fprintf(c.out, "\n%s: sweep produced no results\n", symbol)
		return
	}
	if top <= 0 || top > len(results) {
		top = len(results)
	}

	fmt.Fprintf(c.out, "\n%s: %d parameter sets (hold $%.4f)\n", symbol, len(results), results[0].Baseline)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Short", "Long", "Buy", "Sell", "Trail", "Loss", "Equity", "Excess", "Trades")
	for i, r := range results[:top] {
		p := r.Params
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", p.ShortTermWindow),
			fmt.Sprintf("%d", p.LongTermWindow),
			fmt.Sprintf("%.2f", p.BuyTrendThreshold),
			fmt.Sprintf("%.2f", p.SellTrendThreshold),
			fmt.Sprintf("%.3f", p.TrailingMargin),
			fmt.Sprintf("%.3f", p.LossMargin),
			fmt.Sprintf("$%.4f", r.FinalEquity),
			fmt.Sprintf("%+.4f", r.Excess()),
			fmt.Sprintf("%d", r.Trades),
		)
	}
	table.Render()
}

// PrintHistory imprime los runs guardados.
func (c *Console) PrintHistory(runs []domain.RunResult) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No stored runs yet. Run a backtest without --dry-run first.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Started", "Run", "Symbol", "Strategy", "Fee", "Hold", "Equity", "Verdict")
	for _, r := range runs {
		table.Append(
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			shortID(r.ID),
			r.Symbol,
			r.Strategy,
			fmt.Sprintf("%.4f", r.Fee),
			fmt.Sprintf("$%.4f", r.Baseline),
			fmt.Sprintf("$%.4f", r.FinalEquity),
			r.Verdict(),
		)
	}
	table.Render()
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
