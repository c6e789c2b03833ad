package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementLen = 300

// PGXTracer implements pgx.QueryTracer and pgx.BatchTracer. Each statement
// and each batch gets a client span; batched statements are recorded as
// span events.
type PGXTracer struct{}

var (
	_ pgx.QueryTracer = PGXTracer{}
	_ pgx.BatchTracer = PGXTracer{}
)

func pgxTracer() trace.Tracer { return otel.Tracer("chowpati-api/pgx") }

// TraceQueryStart implements pgx.QueryTracer.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, _ = pgxTracer().Start(ctx, "pgx.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(statementAttrs(data.SQL)...),
	)
	return ctx
}

// TraceQueryEnd implements pgx.QueryTracer.
func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	endSpan(trace.SpanFromContext(ctx), data.CommandTag.RowsAffected(), data.Err)
}

// TraceBatchStart implements pgx.BatchTracer.
func (PGXTracer) TraceBatchStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceBatchStartData) context.Context {
	size := 0
	if data.Batch != nil {
		size = data.Batch.Len()
	}
	ctx, _ = pgxTracer().Start(ctx, "pgx.batch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.Int("db.batch.size", size),
		),
	)
	return ctx
}

// TraceBatchQuery implements pgx.BatchTracer.
func (PGXTracer) TraceBatchQuery(ctx context.Context, _ *pgx.Conn, data pgx.TraceBatchQueryData) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("batch.query", trace.WithAttributes(statementAttrs(data.SQL)...))
	if data.Err != nil {
		span.RecordError(data.Err)
	}
}

// TraceBatchEnd implements pgx.BatchTracer.
func (PGXTracer) TraceBatchEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceBatchEndData) {
	endSpan(trace.SpanFromContext(ctx), -1, data.Err)
}

func endSpan(span trace.Span, rows int64, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if rows >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", rows))
	}
	span.End()
}

func statementAttrs(sql string) []attribute.KeyValue {
	stmt := strings.TrimSpace(sql)
	attrs := []attribute.KeyValue{attribute.String("db.system", "postgresql")}
	if fields := strings.Fields(stmt); len(fields) > 0 {
		attrs = append(attrs, attribute.String("db.operation", strings.ToUpper(fields[0])))
	}
	if len(stmt) > maxStatementLen {
		stmt = stmt[:maxStatementLen] + "..."
	}
	return append(attrs, attribute.String("db.statement", stmt))
}
