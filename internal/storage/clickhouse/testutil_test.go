package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// tickSchema mirrors internal/storage/migrations/clickhouse/001_ticks.sql.
// That package imports this one, so the DDL is repeated here instead of
// imported.
const tickSchema = `
	CREATE TABLE IF NOT EXISTS ticks (
		experiment_id String,
		token_address String,
		timestamp_ms  UInt64,
		price         Float64,
		volume        Float64,
		holder_count  Float64,
		tvl           Float64,
		market_cap    Float64
	) ENGINE = MergeTree()
	ORDER BY (experiment_id, token_address, timestamp_ms)
	SETTINGS index_granularity = 8192
`

// setupTestDB starts a throwaway ClickHouse container with the tick
// schema applied. The returned func tears everything down.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp", "8123/tcp"},
			Env: map[string]string{
				"CLICKHOUSE_DB":       "test",
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").
					WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port()))
	require.NoError(t, err, "connect clickhouse")

	require.NoError(t, conn.Exec(ctx, tickSchema), "apply tick schema")

	return conn, func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}
}
