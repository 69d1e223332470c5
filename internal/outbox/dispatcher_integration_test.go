//go:build integration

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestDispatcherPublishesMessages(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	activityID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, activityID, "activity.created"))

	producer := &stubProducer{}
	dispatcher := NewDispatcher(pool, producer, 10*time.Millisecond, 5)

	beforeDelivered := testutil.ToFloat64(deliveredCounter)
	beforeHistogram := histogramSampleCount(t)

	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes, 1)
	require.Equal(t, "activity_events", producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 1)

	msg := producer.writes[0].messages[0]
	require.Equal(t, activityID, string(msg.Key))
	require.Equal(t, []byte("activity.created"), headerValue(t, msg, "event_type"))
	require.True(t, json.Valid(msg.Value))

	afterDelivered := testutil.ToFloat64(deliveredCounter)
	require.InDelta(t, beforeDelivered+1, afterDelivered, 0.0001)
	afterHistogram := histogramSampleCount(t)
	require.Greater(t, afterHistogram, beforeHistogram)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestDispatcherRetriesAfterDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	activityID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, activityID, "attendee.joined"))

	producer := &stubProducer{err: errors.New("kafka write failed")}
	dispatcher := NewDispatcher(pool, producer, 10*time.Millisecond, 5)

	beforeFailed := testutil.ToFloat64(failedCounter)

	require.Error(t, dispatcher.processBatch(ctx))

	afterFailed := testutil.ToFloat64(failedCounter)
	require.InDelta(t, beforeFailed+1, afterFailed, 0.0001)

	// The row stays unpublished so the next batch retries it.
	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Equal(t, 1, pending)

	producer.err = nil
	require.NoError(t, dispatcher.processBatch(ctx))
	require.Len(t, producer.writes, 1)
}

func TestRetentionPrunesPublishedRows(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	require.NotZero(t, seedOutbox(t, ctx, pool, uuid.NewString(), "activity.created"))
	_, err := pool.Exec(ctx, `UPDATE outbox SET published_at = NOW() - INTERVAL '7 days'`)
	require.NoError(t, err)

	// A fresh published row must survive the sweep.
	require.NotZero(t, seedOutbox(t, ctx, pool, uuid.NewString(), "activity.created"))
	_, err = pool.Exec(ctx, `UPDATE outbox SET published_at = NOW() WHERE published_at IS NULL`)
	require.NoError(t, err)

	retention, err := NewRetention(pool, "0 3 * * *", 72*time.Hour)
	require.NoError(t, err)
	require.NoError(t, retention.Sweep(ctx))

	var remaining int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&remaining))
	require.Equal(t, 1, remaining)
}

// stubProducer captures writes per topic; a non-nil err fails every write.
type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.writes = append(s.writes, writtenBatch{
		topic:    topic,
		messages: append([]kafka.Message(nil), msgs...),
	})
	return nil
}

func headerValue(t *testing.T, msg kafka.Message, key string) []byte {
	t.Helper()
	for _, h := range msg.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	t.Fatalf("missing header %q", key)
	return nil
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("social"),
		postgrescontainer.WithUsername("social"),
		postgrescontainer.WithPassword("social"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	return pool, func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()

	var metric dto.Metric
	require.NoError(t, batchDuration.Write(&metric))
	require.NotNil(t, metric.GetHistogram())
	return metric.GetHistogram().GetSampleCount()
}

func seedOutbox(t *testing.T, ctx context.Context, pool *pgxpool.Pool, activityID, eventType string) int64 {
	t.Helper()

	topic := "activity_events"
	if eventType == "attendee.joined" || eventType == "attendee.left" {
		topic = "attendance_events"
	}

	payloadBytes, err := json.Marshal(map[string]any{
		"activity_id": activityID,
	})
	require.NoError(t, err)

	row := pool.QueryRow(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload)
         VALUES ($1,$2,$3,$4,$5,$6)
         RETURNING event_id`,
		"activity",
		activityID,
		eventType,
		topic,
		activityID,
		payloadBytes,
	)

	var eventID int64
	require.NoError(t, row.Scan(&eventID))
	return eventID
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	files, err := filepath.Glob(filepath.Join(migrationsDir(t), "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migration .up.sql files found")
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(file)
		require.NoErrorf(t, err, "read migration %s", file)
		_, err = pool.Exec(ctx, string(sql))
		require.NoErrorf(t, err, "apply migration %s", file)
	}
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "../../db/postgres/migrations")
}

func waitForDatabase(ctx context.Context, connStr string) error {
	var err error
	for deadline := time.Now().Add(30 * time.Second); time.Now().Before(deadline); time.Sleep(time.Second) {
		var pool *pgxpool.Pool
		if pool, err = pgxpool.New(ctx, connStr); err != nil {
			continue
		}
		err = pool.Ping(ctx)
		pool.Close()
		if err == nil {
			return nil
		}
	}
	return err
}
