package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/observabilitytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEmitsREDAndLogLine(t *testing.T) {
	rec := observabilitytest.New()
	in := NewInstruments(rec, "test-service")

	_, run := in.Begin(context.Background(), "thing.do", "DoThing")
	run.Note(observability.F("thing_id", "42"))
	run.End(nil)

	_, run = in.Begin(context.Background(), "thing.do", "DoThing")
	run.Fail("THING_BROKEN")
	run.End(errors.New("boom"))

	assert.Equal(t, 1.0, rec.Count(observability.MUsecaseRequests, observability.L("use_case", "thing.do"), observability.L("outcome", "success")))
	assert.Equal(t, 1.0, rec.Count(observability.MUsecaseRequests, observability.L("use_case", "thing.do"), observability.L("outcome", "error")))
	assert.Equal(t, 2, rec.Observations(observability.MUsecaseDuration, observability.L("use_case", "thing.do")))

	done := rec.Entries("use_case_done")
	require.Len(t, done, 2)
	assert.Equal(t, "test-service", done[0].Fields["service"])
	assert.Equal(t, "42", done[0].Fields["thing_id"])
	assert.Equal(t, "THING_BROKEN", done[1].Fields["status"])
	assert.Equal(t, "boom", done[1].Fields["error"])
}

func TestRunDefaultsStatusOnUnmarkedError(t *testing.T) {
	rec := observabilitytest.New()
	_, run := NewInstruments(rec, "svc").Begin(context.Background(), "x", "X")
	run.End(errors.New("unexpected"))

	done := rec.Entries("use_case_done")
	require.Len(t, done, 1)
	assert.Equal(t, "error", done[0].Fields["outcome"])
	assert.Equal(t, "ERROR", done[0].Fields["status"])
}

func TestObserveExternal(t *testing.T) {
	rec := observabilitytest.New()
	in := NewInstruments(rec, "svc")
	in.ObserveExternal("inventory", "GET /products", "success", time.Now())

	assert.Equal(t, 1.0, rec.Count(observability.MExternalRequests,
		observability.L("peer", "inventory"), observability.L("endpoint", "GET /products"), observability.L("outcome", "success")))
}

func TestNilObservabilityIsSafe(t *testing.T) {
	_, run := NewInstruments(nil, "svc").Begin(context.Background(), "x", "X")
	run.End(nil)
}
