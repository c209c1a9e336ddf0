package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Experiment Report: %s\n\n", r.Experiment.Name))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Experiment: %s | Mode: %s\n\n", r.Experiment.ExperimentID, r.Experiment.Mode))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Tokens | %d |\n", r.DataSummary.TotalTokens))
	sb.WriteString(fmt.Sprintf("| Monitoring | %d |\n", r.DataSummary.Monitoring))
	sb.WriteString(fmt.Sprintf("| Open Positions | %d |\n", r.DataSummary.OpenPositions))
	sb.WriteString(fmt.Sprintf("| Exited | %d |\n", r.DataSummary.Exited))
	sb.WriteString(fmt.Sprintf("| Diverted | %d |\n", r.DataSummary.Diverted))
	sb.WriteString(fmt.Sprintf("| Total Signals | %d |\n", r.DataSummary.TotalSignals))
	sb.WriteString(fmt.Sprintf("| Accepted Signals | %d |\n", r.DataSummary.AcceptedSignals))
	sb.WriteString(fmt.Sprintf("| Rejected Signals | %d |\n", r.DataSummary.RejectedSignals))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.DataSummary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Failed Trades | %d |\n", r.DataSummary.FailedTrades))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.DataSummary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.DataSummary.DateRangeEnd))
	sb.WriteString("\n")

	// Outcome Distribution
	sb.WriteString("## Outcome Distribution\n\n")
	if r.Outcomes != nil {
		o := r.Outcomes
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Sell Trades | %d |\n", o.TotalTrades))
		sb.WriteString(fmt.Sprintf("| Tokens With Outcomes | %d |\n", o.TotalTokens))
		sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", o.Wins, o.Losses))
		sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", o.WinRate))
		sb.WriteString(fmt.Sprintf("| Token Win Rate | %.4f |\n", o.TokenWinRate))
		sb.WriteString(fmt.Sprintf("| Mean | %.4f |\n", o.OutcomeMean))
		sb.WriteString(fmt.Sprintf("| Median | %.4f |\n", o.OutcomeMedian))
		sb.WriteString(fmt.Sprintf("| P10 / P90 | %.4f / %.4f |\n", o.OutcomeP10, o.OutcomeP90))
		sb.WriteString(fmt.Sprintf("| P25 / P75 | %.4f / %.4f |\n", o.OutcomeP25, o.OutcomeP75))
		sb.WriteString(fmt.Sprintf("| Min / Max | %.4f / %.4f |\n", o.OutcomeMin, o.OutcomeMax))
		sb.WriteString(fmt.Sprintf("| Stddev | %.4f |\n", o.OutcomeStddev))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f |\n", o.MaxDrawdown))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", o.MaxConsecutiveLosses))
	} else {
		sb.WriteString("No realized outcomes yet.\n")
	}
	sb.WriteString("\n")

	// Tokens
	sb.WriteString("## Tokens\n\n")
	if len(r.TokenRows) > 0 {
		sb.WriteString("| Address | Status | CollPrice | BuyPrice | HighPrice | Cash | Tokens | Trades | LastSell% |\n")
		sb.WriteString("|---------|--------|-----------|----------|-----------|------|--------|--------|-----------|\n")
		for _, row := range r.TokenRows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.6f | %.6f | %.6f | %d | %d | %d | %.4f |\n",
				row.Address, row.Status,
				row.CollectionPrice, row.BuyPrice, row.HighestPrice,
				row.CashCards, row.TokenCards, row.Trades, row.LastSellPct))
		}
	} else {
		sb.WriteString("No tokens tracked.\n")
	}
	sb.WriteString("\n")

	// Trade Log
	sb.WriteString("## Trade Log\n\n")
	if len(r.TradeRows) > 0 {
		sb.WriteString("| Trade | Token | Rule | Dir | Timestamp | Price | Cards | Profit% | Executed |\n")
		sb.WriteString("|-------|-------|------|-----|-----------|-------|-------|---------|----------|\n")
		for _, row := range r.TradeRows {
			executed := "yes"
			if !row.Executed {
				executed = fmt.Sprintf("no (%s)", row.ExecError)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.6f | %d | %.4f | %s |\n",
				row.TradeID, row.TokenAddress, row.RuleID, row.Direction,
				row.TimestampMs, row.UnitPrice, row.Cards, row.ProfitPct, executed))
		}
	} else {
		sb.WriteString("No trades recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
