package worker

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/helpdeskhq/helpdesk/internal/observability"
)

type fakeQueue struct {
	depth atomic.Int64
	fail  atomic.Bool
	polls atomic.Int32
}

func (q *fakeQueue) Len(context.Context) (int64, error) {
	q.polls.Add(1)
	if q.fail.Load() {
		return 0, errors.New("redis down")
	}
	return q.depth.Load(), nil
}

func TestQueueMonitor_PublishesDepth(t *testing.T) {
	queue := &fakeQueue{}
	queue.depth.Store(3)
	metrics := observability.NewMetrics()
	monitor := NewQueueMonitor(queue, metrics, zaptest.NewLogger(t), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		monitor.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return queue.polls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done

	expected := `
# HELP helpdesk_chat_queue_depth Clients currently waiting for an operator.
# TYPE helpdesk_chat_queue_depth gauge
helpdesk_chat_queue_depth 3
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "helpdesk_chat_queue_depth"))
}

func TestQueueMonitor_SurvivesErrors(t *testing.T) {
	queue := &fakeQueue{}
	queue.fail.Store(true)
	monitor := NewQueueMonitor(queue, nil, zaptest.NewLogger(t), time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	monitor.Run(ctx)
	assert.GreaterOrEqual(t, queue.polls.Load(), int32(1))
}
