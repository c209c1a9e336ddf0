// Package migrations carries the embedded SQL schemas and the runners
// that apply them at startup.
package migrations

import "embed"

// PostgresFS holds the durable-log schema (experiments, token states,
// signals, trades).
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the tick timeseries schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
