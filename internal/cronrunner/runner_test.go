package cronrunner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsInvalidSpec(t *testing.T) {
	r := New(nil, context.Background())
	_, err := r.Add("not a schedule", func(context.Context) {})
	assert.Error(t, err)
}

func TestRunnerRunsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	r := New(nil, ctx)
	_, err := r.Add("@every 1s", func(context.Context) { runs.Add(1) })
	require.NoError(t, err)

	r.Start()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	r.Stop()
}
