// Package ui prints colored terminal status output for the running
// engine, replacing the backtest performance reports the teacher
// printed with live tick-snapshot summaries. Grounded on the teacher's
// internal/ui/terminal.go banner/section/print helpers, kept verbatim
// in style and repointed at stats.Snapshot.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"tradecore/internal/stats"
	"tradecore/internal/strategy"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// PrintBanner prints the application banner.
func PrintBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║  ████████╗██████╗  █████╗ ██████╗ ███████╗                ║
║  ╚══██╔══╝██╔══██╗██╔══██╗██╔══██╗██╔════╝                ║
║     ██║   ██████╔╝███████║██║  ██║█████╗                  ║
║     ██║   ██╔══██╗██╔══██║██║  ██║██╔══╝                   ║
║     ██║   ██║  ██║██║  ██║██████╔╝███████╗                 ║
║     ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝ ╚══════╝                 ║
║                                                           ║
║             automated crypto trading engine              ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(cyan(banner))
}

// PrintSection prints a section header.
func PrintSection(title string) {
	line := strings.Repeat("═", 60)
	fmt.Printf("\n%s\n", cyan(line))
	fmt.Printf("%s %s\n", cyan("▶"), bold(title))
	fmt.Printf("%s\n\n", cyan(line))
}

// PrintSuccess prints a success line.
func PrintSuccess(msg string) { fmt.Printf("%s %s\n", green("✓"), msg) }

// PrintError prints an error line.
func PrintError(msg string) { fmt.Printf("%s %s\n", red("✗"), msg) }

// PrintWarning prints a warning line.
func PrintWarning(msg string) { fmt.Printf("%s %s\n", yellow("⚠"), msg) }

// PrintInfo prints an informational line.
func PrintInfo(msg string) { fmt.Printf("%s %s\n", cyan("ℹ"), msg) }

// PrintConfigSummary prints a trade configuration's static settings
// before the engine starts it.
func PrintConfigSummary(name, strategyName, exchangeTag, baseCurrency string, tradedCurrencies []string) {
	PrintSection("CONFIGURATION: " + name)
	fmt.Printf("  %-20s %s\n", "Strategy:", green(strategyName))
	fmt.Printf("  %-20s %s\n", "Exchange:", yellow(exchangeTag))
	fmt.Printf("  %-20s %s\n", "Base currency:", cyan(baseCurrency))
	fmt.Printf("  %-20s %s\n", "Traded currencies:", cyan(strings.Join(tradedCurrencies, ", ")))
	fmt.Println()
}

// PrintSnapshot renders one engine-tick snapshot as a single status
// line, with any fired BUY/SELL signals listed beneath it.
func PrintSnapshot(snap stats.Snapshot) {
	fmt.Printf("[%s] %-16s open buys=%-4d open sells=%-4d profit-groups=%-4d coin-in-trading=%s\n",
		snap.Timestamp.Format("15:04:05"),
		snap.ConfigurationName,
		snap.OpenBuyOrders,
		snap.OpenSellOrders,
		snap.ProfitGroupCount,
		yellow(fmt.Sprintf("%.8f", snap.CoinInTrading)),
	)

	for _, sig := range snap.Signals {
		if sig.Decision == strategy.NoDecision {
			continue
		}
		label := sig.Decision.String()
		colored := green
		arrow := "↑"
		if sig.Decision == strategy.Sell {
			colored = red
			arrow = "↓"
		}
		fmt.Printf("  %s %s %s\n", colored(arrow), colored(strings.ToUpper(label)), sig.Currency.String())
	}
}
