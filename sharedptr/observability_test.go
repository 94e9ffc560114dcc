package sharedptr_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shared-handles-go/sharedptr"
	. "github.com/AntonStoeckl/shared-handles-go/testutil/sharedptr/helper" //nolint:revive
)

type ctxKey struct{}

func Test_Observability_Logging(t *testing.T) {
	t.Run("logs the lifecycle of a control block at debug level", func(t *testing.T) {
		// arrange
		logHandler := NewLogHandlerSpy(false)
		value := 1
		s, err := sharedptr.New(&value,
			sharedptr.WithLabel("answer"),
			sharedptr.WithLogger(slog.New(logHandler)),
		)
		require.NoError(t, err)
		w := s.Weak()

		// act
		s.Release()
		destroyedBeforeRetirement := logHandler.HasDebugLogWithMessage("sharedptr: managed object destroyed").Assert()
		retiredBeforeLastWeak := logHandler.HasDebugLogWithMessage("sharedptr: control block retired").Assert()
		w.Release()

		// assert
		assert.True(t, logHandler.HasDebugLogWithMessage("sharedptr: control block created").
			WithAttribute("block_id").
			WithAttributeValue("type", "int").
			WithAttributeValue("label", "answer").
			Assert())
		assert.True(t, destroyedBeforeRetirement)
		assert.False(t, retiredBeforeLastWeak)
		assert.True(t, logHandler.HasDebugLogWithMessage("sharedptr: managed object destroyed").
			WithLifetimeMS().
			WithAttributeValue("weak_observers", "1").
			Assert())
		assert.True(t, logHandler.HasDebugLogWithMessage("sharedptr: control block retired").
			WithLifetimeMS().
			Assert())
		assert.Equal(t, 3, logHandler.GetRecordCount())
	})

	t.Run("logs a failing deleter at error level", func(t *testing.T) {
		// arrange
		logHandler := NewLogHandlerSpy(false)
		spy := NewFailingDeleterSpy[int](errors.New("disk on fire"))
		value := 1
		s, err := sharedptr.NewWithDeleter(&value, spy.Deleter(), sharedptr.WithLogger(slog.New(logHandler)))
		require.NoError(t, err)

		// act
		s.Release()

		// assert
		assert.Equal(t, int64(1), spy.Calls())
		assert.True(t, logHandler.HasErrorLogWithMessage("sharedptr: deleter failed").
			WithAttributeValue("error", "disk on fire").
			WithAttribute("block_id").
			Assert())
		assert.Equal(t, 1, logHandler.CountLogsWithMessage(slog.LevelDebug, "sharedptr: managed object destroyed"))
	})

	t.Run("clones share the configuration of their control block", func(t *testing.T) {
		// arrange
		logHandler := NewLogHandlerSpy(false)
		value := 1
		s, err := sharedptr.New(&value, sharedptr.WithLogger(slog.New(logHandler)))
		require.NoError(t, err)

		// act
		clones := []*sharedptr.Shared[int]{s.Clone(), s.Clone(), s.Clone()}
		s.Release()
		for _, c := range clones {
			c.Release()
		}

		// assert
		assert.Equal(t, 1, logHandler.CountLogsWithMessage(slog.LevelDebug, "sharedptr: control block created"))
		assert.Equal(t, 1, logHandler.CountLogsWithMessage(slog.LevelDebug, "sharedptr: managed object destroyed"))
		assert.Equal(t, 1, logHandler.CountLogsWithMessage(slog.LevelDebug, "sharedptr: control block retired"))
	})

	t.Run("contextual logger receives the trace context", func(t *testing.T) {
		// arrange
		logger := NewContextualLoggerSpy()
		ctx := context.WithValue(context.Background(), ctxKey{}, "trace-42")
		value := 1
		s, err := sharedptr.New(&value,
			sharedptr.WithContextualLogger(logger),
			sharedptr.WithTraceContext(ctx),
		)
		require.NoError(t, err)

		// act
		s.Release()

		// assert
		records := logger.GetRecords()
		require.Len(t, records, 3)
		for _, record := range records {
			assert.Equal(t, "trace-42", record.Context.Value(ctxKey{}))
		}
		assert.True(t, logger.HasLog(slog.LevelDebug, "sharedptr: control block created"))
		assert.True(t, logger.HasLog(slog.LevelDebug, "sharedptr: control block retired"))
	})
}

func Test_Observability_Metrics(t *testing.T) {
	t.Run("records creation, destruction, and retirement", func(t *testing.T) {
		// arrange
		metrics := NewMetricsCollectorSpy()
		value := 1
		s, err := sharedptr.New(&value, sharedptr.WithMetrics(metrics), sharedptr.WithLabel("answer"))
		require.NoError(t, err)
		w := s.Weak()

		// act
		s.Release()
		w.Release()

		// assert
		assert.True(t, metrics.HasCounterRecordForMetric("sharedptr_objects_created_total").
			WithType("int").
			WithLabel("label", "answer").
			Assert())
		assert.Equal(t, 1, metrics.CountCounterRecordsForMetric("sharedptr_objects_destroyed_total"))
		assert.Equal(t, 1, metrics.CountCounterRecordsForMetric("sharedptr_control_blocks_retired_total"))
		assert.Equal(t, 0, metrics.CountCounterRecordsForMetric("sharedptr_deleter_errors_total"))
		assert.True(t, metrics.HasDurationRecordForMetric("sharedptr_object_lifetime_seconds").WithType("int").Assert())

		values := metrics.GetValueRecords()
		require.Len(t, values, 1)
		assert.Equal(t, "sharedptr_weak_observers_at_expiry", values[0].Metric)
		assert.Equal(t, float64(1), values[0].Value)
	})

	t.Run("records promotion outcomes", func(t *testing.T) {
		// arrange
		metrics := NewMetricsCollectorSpy()
		value := 1
		s, err := sharedptr.New(&value, sharedptr.WithMetrics(metrics))
		require.NoError(t, err)
		w := s.Weak()
		defer w.Release()

		// act
		locked := w.Lock()
		locked.Release()
		s.Release()
		expired := w.Lock()

		// assert
		assert.False(t, expired.Valid())
		assert.True(t, metrics.HasCounterRecordForMetric("sharedptr_promotions_total").WithStatus("success").Assert())
		assert.True(t, metrics.HasCounterRecordForMetric("sharedptr_promotions_total").WithStatus("expired").Assert())
		assert.Equal(t, 2, metrics.CountCounterRecordsForMetric("sharedptr_promotions_total"))
	})

	t.Run("records deleter errors", func(t *testing.T) {
		// arrange
		metrics := NewMetricsCollectorSpy()
		spy := NewFailingDeleterSpy[int](errors.New("boom"))
		value := 1
		s, err := sharedptr.NewWithDeleter(&value, spy.Deleter(), sharedptr.WithMetrics(metrics))
		require.NoError(t, err)

		// act
		s.Release()

		// assert
		assert.Equal(t, 1, metrics.CountCounterRecordsForMetric("sharedptr_deleter_errors_total"))
		assert.Equal(t, 1, metrics.CountCounterRecordsForMetric("sharedptr_objects_destroyed_total"))
	})
}

func Test_Observability_Tracing(t *testing.T) {
	t.Run("spans the lifetime of the managed object", func(t *testing.T) {
		// arrange
		tracing := NewTracingCollectorSpy()
		value := 1
		s, err := sharedptr.New(&value, sharedptr.WithTracing(tracing), sharedptr.WithLabel("answer"))
		require.NoError(t, err)
		w := s.Weak()
		defer w.Release()

		// act
		finishedWhileAlive := tracing.CountFinishedSpans()
		s.Release()

		// assert
		assert.Equal(t, 0, finishedWhileAlive)
		records := tracing.GetSpanRecords()
		require.Len(t, records, 1)
		assert.Equal(t, "sharedptr.object_lifetime", records[0].Name)
		assert.Equal(t, "int", records[0].StartAttributes["type"])
		assert.Equal(t, "answer", records[0].StartAttributes["label"])
		assert.NotEmpty(t, records[0].StartAttributes["block_id"])
		assert.True(t, records[0].Finished)
		assert.Equal(t, "success", records[0].Status)
		assert.Equal(t, "1", records[0].EndAttributes["weak_observers"])
		assert.Contains(t, records[0].EndAttributes, "lifetime_ms")
	})

	t.Run("marks the span as failed when the deleter fails", func(t *testing.T) {
		// arrange
		tracing := NewTracingCollectorSpy()
		spy := NewFailingDeleterSpy[int](errors.New("boom"))
		value := 1
		s, err := sharedptr.NewWithDeleter(&value, spy.Deleter(), sharedptr.WithTracing(tracing))
		require.NoError(t, err)

		// act
		s.Release()

		// assert
		records := tracing.GetSpanRecords()
		require.Len(t, records, 1)
		assert.Equal(t, "error", records[0].Status)
		assert.Equal(t, "deleter_failed", records[0].EndAttributes["error_type"])
		assert.Equal(t, "error", records[0].SpanContext.GetStatus())
		assert.Equal(t, "deleter_failed", records[0].SpanContext.GetAttributes()["error_type"])
	})
}

func Test_Observability_OptionValidation(t *testing.T) {
	value := 1

	testCases := []struct {
		name    string
		option  sharedptr.Option
		wantErr error
	}{
		{name: "empty label", option: sharedptr.WithLabel(""), wantErr: sharedptr.ErrEmptyLabel},
		{name: "blank label", option: sharedptr.WithLabel(" \t "), wantErr: sharedptr.ErrEmptyLabel},
		{name: "nil tracker", option: sharedptr.WithTracker(nil), wantErr: sharedptr.ErrNilTracker},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			s, err := sharedptr.New(&value, tc.option)

			// assert
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, s)
		})
	}
}

func Test_Observability_NoOptions_EmitsNothing(t *testing.T) {
	// arrange
	value := 1
	s, err := sharedptr.New(&value)
	require.NoError(t, err)

	// act
	w := s.Weak()
	s.Release()
	w.Release()

	// assert
	assert.True(t, w.Expired())
}
