package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/repository"
	apperrors "github.com/spec-kit/hubops/pkg/util/errorutil"
)

const (
	statsCacheKey = "hubops:dashboard:stats"
	statsCacheTTL = 30 * time.Second
)

// DepartmentCount is a per-department tally.
type DepartmentCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SatisfactionBucket groups tenant feedback.
type SatisfactionBucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DashboardStats is the GM dashboard read model.
type DashboardStats struct {
	IssuesPerDept   []DepartmentCount    `json:"issues_per_dept"`
	DeptLoad        []DepartmentCount    `json:"dept_load"`
	Satisfaction    []SatisfactionBucket `json:"satisfaction"`
	AvgFixTimeHours float64              `json:"avg_fix_time_hours"`
	ResolvedCount   int                  `json:"resolved_count"`
}

// StatsService computes GM dashboard aggregates over the ticket set, with a
// short-lived Redis cache in front. A cache miss or Redis outage degrades to
// a direct computation.
type StatsService struct {
	tickets     repository.TicketRepository
	departments repository.DepartmentRepository
	cache       *redis.Client
	logger      *zap.Logger
}

// NewStatsService constructs the service. cache may be nil.
func NewStatsService(tickets repository.TicketRepository, departments repository.DepartmentRepository, cache *redis.Client, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{tickets: tickets, departments: departments, cache: cache, logger: logger}
}

// Dashboard returns the aggregates, GM only.
func (s *StatsService) Dashboard(ctx context.Context, user *domain.User) (*DashboardStats, error) {
	if user.Role != domain.RoleGM {
		return nil, apperrors.NewForbidden("only the GM sees dashboard stats")
	}

	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, stats)
	return stats, nil
}

func (s *StatsService) compute(ctx context.Context) (*DashboardStats, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{Limit: 10000})
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	deptNames := make(map[string]string, len(depts))
	issues := make(map[string]int, len(depts))
	load := make(map[string]int, len(depts))
	for _, dept := range depts {
		deptNames[dept.ID] = dept.Name
		issues[dept.ID] = 0
		load[dept.ID] = 0
	}

	var (
		happy, neutral, unhappy int
		totalFix                time.Duration
		resolved                int
	)
	for i := range tickets {
		t := &tickets[i]
		if t.AssignedDeptID != nil {
			issues[*t.AssignedDeptID]++
			if t.Status == domain.TicketStatusInProgress {
				load[*t.AssignedDeptID]++
			}
		}
		if elapsed, ok := t.Elapsed(); ok {
			totalFix += elapsed
			resolved++
		}
		if t.FeedbackRating != nil {
			switch {
			case *t.FeedbackRating >= 4:
				happy++
			case *t.FeedbackRating == 3:
				neutral++
			default:
				unhappy++
			}
		}
	}

	stats := &DashboardStats{ResolvedCount: resolved}
	for _, dept := range depts {
		stats.IssuesPerDept = append(stats.IssuesPerDept, DepartmentCount{Name: deptNames[dept.ID], Count: issues[dept.ID]})
		stats.DeptLoad = append(stats.DeptLoad, DepartmentCount{Name: deptNames[dept.ID], Count: load[dept.ID]})
	}
	stats.Satisfaction = []SatisfactionBucket{
		{Name: "Happy", Value: happy},
		{Name: "Neutral", Value: neutral},
		{Name: "Unhappy", Value: unhappy},
	}
	if resolved > 0 {
		stats.AvgFixTimeHours = totalFix.Hours() / float64(resolved)
	}
	return stats, nil
}

func (s *StatsService) fromCache(ctx context.Context) *DashboardStats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *StatsService) toCache(ctx context.Context, stats *DashboardStats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, raw, statsCacheTTL).Err(); err != nil {
		s.logger.Debug("stats cache write failed", zap.Error(err))
	}
}
