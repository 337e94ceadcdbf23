package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRebuild(t *testing.T) {
	before := testutil.ToFloat64(RebuildsTotal.WithLabelValues("success"))
	beforeErr := testutil.ToFloat64(RebuildsTotal.WithLabelValues("error"))

	RecordRebuild("success", 250*time.Millisecond)
	RecordRebuild("error", 0)

	assert.Equal(t, before+1, testutil.ToFloat64(RebuildsTotal.WithLabelValues("success")))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(RebuildsTotal.WithLabelValues("error")))
}

func TestRecordPublish(t *testing.T) {
	RecordPublish(7, 1682, 250000)

	assert.Equal(t, 7.0, testutil.ToFloat64(IndexVersion))
	assert.Equal(t, 1682.0, testutil.ToFloat64(IndexItems))
	assert.Equal(t, 250000.0, testutil.ToFloat64(IndexPairs))
}

func TestRecordQuery(t *testing.T) {
	before := testutil.ToFloat64(QueriesTotal.WithLabelValues("item_cf", "ok"))
	RecordQuery("item_cf", "ok", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(QueriesTotal.WithLabelValues("item_cf", "ok")))
}

func TestRecordUnresolved(t *testing.T) {
	before := testutil.ToFloat64(UnresolvedTitlesTotal)
	RecordUnresolved(0)
	RecordUnresolved(3)
	assert.Equal(t, before+3, testutil.ToFloat64(UnresolvedTitlesTotal))
}

func TestRecordCache(t *testing.T) {
	before := testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("hit"))
	RecordCache("hit")
	assert.Equal(t, before+1, testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("hit")))
}
