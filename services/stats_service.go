package services

import (
	"hash/fnv"
	"sort"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/store"
	"github.com/aiqalab/redteam-console/utils"
)

// StatsService assembles the dashboard heatmap and summary numbers from
// live runtime state and the stored test-case library.
type StatsService struct {
	store       *store.Store
	coordinator *GlobalCoordinator
	replies     ReplyProvider
	logger      *utils.Logger
}

// NewStatsService creates the stats service.
func NewStatsService(st *store.Store, coordinator *GlobalCoordinator, replies ReplyProvider, logger *utils.Logger) *StatsService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &StatsService{
		store:       st,
		coordinator: coordinator,
		replies:     replies,
		logger:      logger.WithSource("stats_service"),
	}
}

// Dashboard returns the full stats snapshot.
func (s *StatsService) Dashboard() (*models.DashboardStats, error) {
	statuses := s.coordinator.Status()

	active := 0
	for _, st := range statuses {
		if st.State == "running" || st.State == "sending" {
			active++
		}
	}

	cases, err := s.store.ListTestCases("")
	if err != nil {
		return nil, err
	}

	return &models.DashboardStats{
		TotalClients:      len(statuses),
		ActiveClients:     active,
		TotalTestCases:    len(cases),
		TotalMessagesSent: s.coordinator.TotalMessages(),
		GlobalMode:        s.coordinator.Mode().String(),
		APIConfigured:     s.replies.IsAvailable(),
		Clients:           statuses,
		AttackTypes:       attackStats(cases),
	}, nil
}

// attackStats groups the library by attack type and category. The risk
// score is a stable display placeholder derived from the type name, not a
// graded measurement.
func attackStats(cases []models.TestCase) []models.AttackStat {
	type key struct{ attackType, category string }
	counts := make(map[key]int)
	for _, tc := range cases {
		counts[key{tc.AttackType, tc.Category}]++
	}

	out := make([]models.AttackStat, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.AttackStat{
			AttackType: k.attackType,
			Category:   k.category,
			CaseCount:  n,
			RiskScore:  placeholderRisk(k.attackType),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AttackType != out[j].AttackType {
			return out[i].AttackType < out[j].AttackType
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// placeholderRisk maps a type name to a stable value in [3.0, 9.5].
func placeholderRisk(attackType string) float64 {
	h := fnv.New32a()
	h.Write([]byte(attackType))
	return 3.0 + float64(h.Sum32()%66)/10.0
}
