package obs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestPGXTracerSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var tracer PGXTracer
	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "insert into orders values ($1)"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("INSERT 0 1")})

	batch := &pgx.Batch{}
	batch.Queue("insert into order_items values ($1)", 1)
	ctx = tracer.TraceBatchStart(context.Background(), nil, pgx.TraceBatchStartData{Batch: batch})
	tracer.TraceBatchQuery(ctx, nil, pgx.TraceBatchQueryData{SQL: "insert into order_items values ($1)"})
	tracer.TraceBatchEnd(ctx, nil, pgx.TraceBatchEndData{Err: errors.New("boom")})

	spans := rec.Ended()
	require.Len(t, spans, 2)

	query := spans[0]
	require.Equal(t, "pgx.query", query.Name())
	attrs := map[string]string{}
	for _, kv := range query.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "INSERT", attrs["db.operation"])
	require.Equal(t, "1", attrs["db.rows_affected"])

	batchSpan := spans[1]
	require.Equal(t, "pgx.batch", batchSpan.Name())
	require.Len(t, batchSpan.Events(), 2)
	require.Equal(t, "batch.query", batchSpan.Events()[0].Name)
	require.Equal(t, "exception", batchSpan.Events()[1].Name)
}

func TestStatementAttrsTruncates(t *testing.T) {
	attrs := statementAttrs("select " + strings.Repeat("x", 400))
	stmt := attrs[len(attrs)-1].Value.AsString()
	require.Len(t, stmt, maxStatementLen+3)
	require.True(t, strings.HasSuffix(stmt, "..."))
}
