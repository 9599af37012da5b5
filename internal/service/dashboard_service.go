package service

import (
	"context"
	"sort"
	"time"

	"github.com/helpdeskhq/helpdesk/internal/auth"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/repository"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

const (
	dashboardPageSize = 200
	dashboardMaxCalls = 20000
	defaultWindowDays = 30
	maxWindowDays     = 365
	topTagLimit       = 10
	dayLayout         = "2006-01-02"
)

// DashboardService aggregates call statistics.
type DashboardService struct {
	calls repository.CallRepository
	now   func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(calls repository.CallRepository) *DashboardService {
	return &DashboardService{calls: calls, now: time.Now}
}

// OperatorCount is the number of calls assigned to one operator.
type OperatorCount struct {
	OperatorID string `json:"operator_id"`
	Count      int    `json:"count"`
}

// TagCount is the number of calls carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// DayCount is the number of calls opened on a UTC day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Summary is the dashboard payload.
type Summary struct {
	From       time.Time                   `json:"from"`
	To         time.Time                   `json:"to"`
	Total      int                         `json:"total"`
	Open       int                         `json:"open"`
	Unassigned int                         `json:"unassigned"`
	ByStatus   map[domain.CallStatus]int   `json:"by_status"`
	ByPriority map[domain.CallPriority]int `json:"by_priority"`
	ByOperator []OperatorCount             `json:"by_operator"`
	TopTags    []TagCount                  `json:"top_tags"`
	PerDay     []DayCount                  `json:"per_day"`
}

// Summary aggregates calls opened in the last windowDays days. Clients only see
// their company; operators and above may narrow to a company.
func (s *DashboardService) Summary(ctx context.Context, p *auth.Principal, windowDays int, companyID *string) (*Summary, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	if windowDays > maxWindowDays {
		windowDays = maxWindowDays
	}
	to := s.now().UTC()
	from := startOfDay(to).AddDate(0, 0, -(windowDays - 1))

	filter := repository.CallFilter{CreatedFrom: &from, CreatedTo: &to, CompanyID: companyID}
	if !p.Role.CanManageCalls() {
		own := p.CompanyID()
		if own == nil {
			return nil, apperrors.NewForbidden("client is not linked to a company")
		}
		filter.CompanyID = own
	}

	var calls []domain.Call
	for offset := 0; offset < dashboardMaxCalls; offset += dashboardPageSize {
		filter.Limit = dashboardPageSize
		filter.Offset = offset
		page, err := s.calls.ListWithFilter(ctx, filter)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		calls = append(calls, page...)
		if len(page) < dashboardPageSize {
			break
		}
	}
	return AggregateCalls(calls, from, to), nil
}

// AggregateCalls groups calls by status, priority, operator, tag and opening day.
// Days in [from, to] with no calls are reported with a zero count.
func AggregateCalls(calls []domain.Call, from, to time.Time) *Summary {
	summary := &Summary{
		From:       from,
		To:         to,
		ByStatus:   map[domain.CallStatus]int{},
		ByPriority: map[domain.CallPriority]int{},
		ByOperator: []OperatorCount{},
		TopTags:    []TagCount{},
		PerDay:     []DayCount{},
	}
	operators := map[string]int{}
	tags := map[string]int{}
	days := map[string]int{}

	for i := range calls {
		call := &calls[i]
		summary.Total++
		summary.ByStatus[call.Status]++
		summary.ByPriority[call.Priority]++
		if !call.IsFinal() {
			summary.Open++
		}
		if call.OperatorID == nil {
			summary.Unassigned++
		} else {
			operators[*call.OperatorID]++
		}
		for _, tag := range call.Tags {
			tags[tag]++
		}
		days[call.CreatedAt.UTC().Format(dayLayout)]++
	}

	for id, count := range operators {
		summary.ByOperator = append(summary.ByOperator, OperatorCount{OperatorID: id, Count: count})
	}
	sort.Slice(summary.ByOperator, func(i, j int) bool {
		a, b := summary.ByOperator[i], summary.ByOperator[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.OperatorID < b.OperatorID
	})

	for tag, count := range tags {
		summary.TopTags = append(summary.TopTags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(summary.TopTags, func(i, j int) bool {
		a, b := summary.TopTags[i], summary.TopTags[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Tag < b.Tag
	})
	if len(summary.TopTags) > topTagLimit {
		summary.TopTags = summary.TopTags[:topTagLimit]
	}

	if !from.IsZero() && !to.Before(from) {
		for day := startOfDay(from); !day.After(to); day = day.AddDate(0, 0, 1) {
			key := day.Format(dayLayout)
			summary.PerDay = append(summary.PerDay, DayCount{Day: key, Count: days[key]})
		}
	}
	return summary
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
