package cache

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_LookupsAndRefreshes(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	name := "metrics_test"
	c := NewKeyed[int](Options{Name: name, Clock: clockwork.NewFakeClock(), Logger: logger})
	ctx := context.Background()

	ok := func(context.Context) (int, error) { return 42, nil }
	fail := func(context.Context) (int, error) { return 0, errors.New("boom") }

	c.GetOrRefresh(ctx, "a", false, ok)
	c.GetOrRefresh(ctx, "a", false, ok)
	c.GetOrRefresh(ctx, "a", true, fail)

	assert.Equal(t, 1.0, testutil.ToFloat64(lookups.WithLabelValues(name, "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(lookups.WithLabelValues(name, "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(lookups.WithLabelValues(name, "forced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(refreshes.WithLabelValues(name, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(refreshes.WithLabelValues(name, "failure")))
}
