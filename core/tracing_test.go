package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedManager(t *testing.T, exec Executor) (*TaskManager, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	cfg := DefaultTaskManagerConfig()
	cfg.Name = "traced"
	cfg.Tracer = provider.Tracer(instrumentationName)
	return NewTaskManager(exec, cfg), recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

// TestTracing_SpanPerTask verifies every run produces one span with task attributes
// Given: A manager with a recording tracer provider
// When: A successful and a failing task run
// Then: Two spans are ended, the failing one with Error status and a recorded error event
func TestTracing_SpanPerTask(t *testing.T) {
	// Arrange
	exec := &heldExecutor{}
	m, recorder := newTracedManager(t, exec)
	owner := &screen{}

	ok, err := m.Execute(&RunnerFuncs{}, owner)
	require.NoError(t, err)
	failing, err := m.Execute(&RunnerFuncs{
		ExecuteFn: func(ctx context.Context, t *Task) (any, error) {
			return nil, errors.New("boom")
		},
	}, owner)
	require.NoError(t, err)

	// Act
	exec.release()

	// Assert
	spans := recorder.Ended()
	require.Len(t, spans, 2)

	for _, span := range spans {
		assert.Equal(t, spanTaskRun, span.Name())
		manager, found := spanAttr(span, "ownertasks.manager")
		require.True(t, found)
		assert.Equal(t, "traced", manager.AsString())
		ownerType, found := spanAttr(span, "ownertasks.owner.type")
		require.True(t, found)
		assert.Equal(t, "*core.screen", ownerType.AsString())
	}

	byID := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range spans {
		id, _ := spanAttr(span, "ownertasks.task.id")
		byID[id.AsString()] = span
	}

	okSpan := byID[ok.ID().String()]
	require.NotNil(t, okSpan)
	assert.Equal(t, codes.Ok, okSpan.Status().Code)
	state, _ := spanAttr(okSpan, "ownertasks.task.state")
	assert.Equal(t, "FINISHED", state.AsString())

	failSpan := byID[failing.ID().String()]
	require.NotNil(t, failSpan)
	assert.Equal(t, codes.Error, failSpan.Status().Code)
	require.NotEmpty(t, failSpan.Events())
	assert.Equal(t, "exception", failSpan.Events()[0].Name)
	state, _ = spanAttr(failSpan, "ownertasks.task.state")
	assert.Equal(t, "ERROR", state.AsString())
}

// TestTracing_PanicMarksSpan verifies a callback panic ends the span with Error status
func TestTracing_PanicMarksSpan(t *testing.T) {
	exec := &goExecutor{}
	m, recorder := newTracedManager(t, exec)

	task, err := m.Execute(&RunnerFuncs{OnSuccessFn: func(any) { panic("callback") }}, &screen{})
	require.NoError(t, err)
	waitDone(t, task, 2*time.Second)
	exec.wg.Wait()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "callback panicked", spans[0].Status().Description)
}
