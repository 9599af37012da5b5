package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpdeskhq/helpdesk/internal/domain"
)

func day(d int, hour int) time.Time {
	return time.Date(2026, 5, d, hour, 0, 0, 0, time.UTC)
}

func TestAggregateCalls(t *testing.T) {
	calls := []domain.Call{
		{Status: domain.CallStatusOpen, Priority: domain.CallPriorityHigh, Tags: []string{"vpn", "network"}, CreatedAt: day(1, 9)},
		{Status: domain.CallStatusInProgress, Priority: domain.CallPriorityHigh, OperatorID: ptr("bob"), Tags: []string{"vpn"}, CreatedAt: day(1, 23)},
		{Status: domain.CallStatusClosed, Priority: domain.CallPriorityLow, OperatorID: ptr("amy"), Tags: []string{"billing"}, CreatedAt: day(3, 1)},
		{Status: domain.CallStatusResolved, Priority: domain.CallPriorityMedium, OperatorID: ptr("bob"), CreatedAt: day(3, 12)},
		{Status: domain.CallStatusCancelled, Priority: domain.CallPriorityLow, OperatorID: ptr("cid"), Tags: []string{"network"}, CreatedAt: day(4, 8)},
	}

	summary := AggregateCalls(calls, day(1, 0), day(4, 18))

	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 3, summary.Open)
	assert.Equal(t, 1, summary.Unassigned)
	assert.Equal(t, 2, summary.ByPriority[domain.CallPriorityHigh])
	assert.Equal(t, 1, summary.ByStatus[domain.CallStatusClosed])
	assert.Equal(t, []OperatorCount{
		{OperatorID: "bob", Count: 2},
		{OperatorID: "amy", Count: 1},
		{OperatorID: "cid", Count: 1},
	}, summary.ByOperator)
	assert.Equal(t, []TagCount{
		{Tag: "network", Count: 2},
		{Tag: "vpn", Count: 2},
		{Tag: "billing", Count: 1},
	}, summary.TopTags)
	assert.Equal(t, []DayCount{
		{Day: "2026-05-01", Count: 2},
		{Day: "2026-05-02", Count: 0},
		{Day: "2026-05-03", Count: 2},
		{Day: "2026-05-04", Count: 1},
	}, summary.PerDay)
}

func TestAggregateCalls_Empty(t *testing.T) {
	summary := AggregateCalls(nil, day(1, 0), day(2, 5))
	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.ByOperator)
	assert.Len(t, summary.PerDay, 2)
}

func TestDashboardService_Summary(t *testing.T) {
	calls := newFakeCalls()
	for i := 0; i < 250; i++ {
		calls.listed = append(calls.listed, domain.Call{Status: domain.CallStatusOpen, CreatedAt: day(10, 9)})
	}
	svc := NewDashboardService(calls)
	svc.now = func() time.Time { return day(10, 12) }
	ctx := context.Background()

	summary, err := svc.Summary(ctx, principal("op", domain.RoleOperator), 7, nil)
	require.NoError(t, err)
	assert.Equal(t, 250, summary.Total)
	assert.Len(t, summary.PerDay, 7)
	assert.Equal(t, day(4, 0), summary.From)
	require.Len(t, calls.filters, 2)
	assert.Equal(t, 200, calls.filters[1].Offset)

	calls.filters = nil
	other := "zeta"
	_, err = svc.Summary(ctx, clientOf("c1", "acme"), 0, &other)
	require.NoError(t, err)
	require.NotEmpty(t, calls.filters)
	assert.Equal(t, "acme", *calls.filters[0].CompanyID)

	_, err = svc.Summary(ctx, principal("c2", domain.RoleClient), 0, nil)
	assertCode(t, err, "FORBIDDEN")
}
