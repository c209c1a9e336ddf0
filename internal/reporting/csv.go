package reporting

import (
	"fmt"
	"strings"
)

// RenderTradesCSV renders the trade log as CSV string.
func RenderTradesCSV(rows []TradeRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,token_address,rule_id,direction,timestamp_ms,")
	sb.WriteString("unit_price,cards,profit_pct,executed,exec_error\n")

	// Rows
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%.6f,%d,%.6f,%t,%s\n",
			row.TradeID,
			row.TokenAddress,
			row.RuleID,
			row.Direction,
			row.TimestampMs,
			row.UnitPrice,
			row.Cards,
			row.ProfitPct,
			row.Executed,
			row.ExecError,
		))
	}

	return sb.String()
}

// RenderTokensCSV renders the per-token table as CSV string.
func RenderTokensCSV(rows []TokenRow) string {
	var sb strings.Builder

	sb.WriteString("address,status,collection_price,buy_price,highest_price,")
	sb.WriteString("cash_cards,token_cards,trades,last_sell_pct\n")

	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f,%.6f,%.6f,%d,%d,%d,%.6f\n",
			row.Address,
			row.Status,
			row.CollectionPrice,
			row.BuyPrice,
			row.HighestPrice,
			row.CashCards,
			row.TokenCards,
			row.Trades,
			row.LastSellPct,
		))
	}

	return sb.String()
}
