package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanTree(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "build", "")
	require.NotEmpty(t, root.TraceID)

	_, postings := StartChildSpan(ctx, "postings")
	postings.SetAttr("terms", 12)
	postings.End()
	_, stats := StartChildSpan(ctx, "statistics")
	stats.End()
	root.End()

	children := root.Children()
	require.Len(t, children, 2)
	assert.Equal(t, root.TraceID, children[0].TraceID)
	v, ok := children[0].Attr("terms")
	assert.True(t, ok)
	assert.Equal(t, 12, v)

	phases := root.Phases()
	assert.Contains(t, phases, "postings")
	assert.Contains(t, phases, "statistics")
}

func TestEndedSpanIsFrozen(t *testing.T) {
	_, span := StartSpan(context.Background(), "postings", "")
	span.SetAttr("postings", 9)
	span.End()
	d := span.Duration

	span.SetAttr("late", true)
	span.End()
	_, ok := span.Attr("late")
	assert.False(t, ok)
	assert.Equal(t, d, span.Duration)
	v, _ := span.Attr("postings")
	assert.Equal(t, 9, v)
}

func TestChildWithoutParentStartsRoot(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "orphan")
	assert.NotEmpty(t, span.TraceID)
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestLogWritesEverySpan(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, root := StartSpan(context.Background(), "build", "trace-1")
	_, child := StartChildSpan(ctx, "weights")
	child.End()
	root.End()
	root.Log(logger)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "msg=span"))
	assert.Contains(t, out, "span=weights")
	assert.Contains(t, out, "trace_id=trace-1")
}
