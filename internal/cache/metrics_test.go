package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRememberCountsHitsMissesAndErrors(t *testing.T) {
	ctx := context.Background()
	op := "metrics_test"
	compute := func(context.Context) (int64, error) { return 7, nil }

	hits := testutil.ToFloat64(cacheHits.WithLabelValues(op))
	misses := testutil.ToFloat64(cacheMisses.WithLabelValues(op))
	getErrors := testutil.ToFloat64(cacheErrors.WithLabelValues(op, "get"))

	c := NewMemoryCache()
	_, err := Remember(ctx, c, op, Args{"n": 1}, time.Minute, compute)
	require.NoError(t, err)
	_, err = Remember(ctx, c, op, Args{"n": 1}, time.Minute, compute)
	require.NoError(t, err)
	_, err = Remember(ctx, &brokenCache{}, op, Args{"n": 1}, time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, hits+1, testutil.ToFloat64(cacheHits.WithLabelValues(op)))
	assert.Equal(t, misses+2, testutil.ToFloat64(cacheMisses.WithLabelValues(op)))
	assert.Equal(t, getErrors+1, testutil.ToFloat64(cacheErrors.WithLabelValues(op, "get")))
}
