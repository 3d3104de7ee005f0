package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/export"
)

type statsRepository interface {
	Rows(ctx context.Context, filter models.AttendanceStatsFilter) ([]models.AttendanceStatsRow, error)
}

// StatsService derives attendance statistics from the ledger.
type StatsService struct {
	repo   statsRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// StatsExport is a rendered statistics document.
type StatsExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewStatsService constructs the statistics service. cache may be nil.
func NewStatsService(repo statsRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Compute returns statistics for the lecturer's sessions matching the filter.
func (s *StatsService) Compute(ctx context.Context, filter models.AttendanceStatsFilter) (*models.AttendanceStats, error) {
	stats, _, err := s.ComputeCached(ctx, filter)
	return stats, err
}

// ComputeCached is Compute that also reports whether the cache served the result.
func (s *StatsService) ComputeCached(ctx context.Context, filter models.AttendanceStatsFilter) (*models.AttendanceStats, bool, error) {
	if filter.LecturerID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "lecturer is required")
	}
	if filter.Week != nil && *filter.Week < 1 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "week must be at least 1")
	}

	key := StatsCacheKey(filter)
	var cached models.AttendanceStats
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	rows, err := s.repo.Rows(ctx, filter)
	if err != nil {
		return nil, false, appErrors.FromStore(err, "failed to load attendance statistics")
	}
	stats := BuildAttendanceStats(rows)
	_ = s.cache.Set(ctx, key, stats, s.ttl)
	return &stats, false, nil
}

// Export renders the statistics of filter as CSV or PDF.
func (s *StatsService) Export(ctx context.Context, filter models.AttendanceStatsFilter, format export.Format) (*StatsExport, error) {
	stats, err := s.Compute(ctx, filter)
	if err != nil {
		return nil, err
	}
	data, err := export.Render(format, statsDataset(filter, stats))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statistics")
	}
	return &StatsExport{
		Filename:    statsFilename(filter, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// BuildAttendanceStats partitions ledger rows by status. A student matched by
// several sessions appears once per status list; total counts distinct students.
func BuildAttendanceStats(rows []models.AttendanceStatsRow) models.AttendanceStats {
	stats := models.AttendanceStats{
		PresentList: []models.StatsStudent{},
		AbsentList:  []models.StatsStudent{},
	}
	present := map[string]struct{}{}
	absent := map[string]struct{}{}
	distinct := map[string]struct{}{}

	for _, row := range rows {
		entry := models.StatsStudent{StudentID: row.StudentID, StudentName: row.StudentName}
		switch row.Status {
		case models.RecordStatusPresent:
			if _, ok := present[row.StudentID]; ok {
				continue
			}
			present[row.StudentID] = struct{}{}
			stats.PresentList = append(stats.PresentList, entry)
		case models.RecordStatusAbsent:
			if _, ok := absent[row.StudentID]; ok {
				continue
			}
			absent[row.StudentID] = struct{}{}
			stats.AbsentList = append(stats.AbsentList, entry)
		default:
			continue
		}
		distinct[row.StudentID] = struct{}{}
	}

	stats.PresentCount = len(stats.PresentList)
	stats.AbsentCount = len(stats.AbsentList)
	stats.Total = len(distinct)
	if stats.Total > 0 {
		stats.Percentage = int(math.Round(100 * float64(stats.PresentCount) / float64(stats.Total)))
	}
	return stats
}

func statsDataset(filter models.AttendanceStatsFilter, stats *models.AttendanceStats) export.Dataset {
	rows := make([][]string, 0, len(stats.PresentList)+len(stats.AbsentList))
	for _, st := range stats.PresentList {
		rows = append(rows, []string{st.StudentID, st.StudentName, string(models.RecordStatusPresent)})
	}
	for _, st := range stats.AbsentList {
		rows = append(rows, []string{st.StudentID, st.StudentName, string(models.RecordStatusAbsent)})
	}
	return export.Dataset{
		Title: statsTitle(filter),
		Summary: []export.SummaryLine{
			{Label: "Students", Value: strconv.Itoa(stats.Total)},
			{Label: "Present", Value: strconv.Itoa(stats.PresentCount)},
			{Label: "Absent", Value: strconv.Itoa(stats.AbsentCount)},
			{Label: "Attendance", Value: fmt.Sprintf("%d%%", stats.Percentage)},
		},
		Headers: []string{"Student ID", "Student Name", "Status"},
		Rows:    rows,
	}
}

func statsTitle(filter models.AttendanceStatsFilter) string {
	title := "Attendance statistics"
	if filter.Week != nil {
		title = fmt.Sprintf("%s week %d", title, *filter.Week)
	}
	return title
}

func statsFilename(filter models.AttendanceStatsFilter, format export.Format) string {
	name := "attendance"
	if filter.CourseID != "" {
		name += "_" + filter.CourseID
	}
	if filter.Week != nil {
		name += fmt.Sprintf("_week%d", *filter.Week)
	}
	return name + "." + format.Extension()
}
