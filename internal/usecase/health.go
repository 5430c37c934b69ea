package usecase

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/chayanin-k/walkmate-api/internal/apperror"
	"github.com/chayanin-k/walkmate-api/internal/model"
	"github.com/chayanin-k/walkmate-api/internal/repository"
)

const dateLayout = "2006-01-02"

// HealthSample is one ingested activity delta.
type HealthSample struct {
	Date     string  `json:"date"`
	Steps    int64   `json:"steps"`
	Duration int64   `json:"duration"`
	Calories float64 `json:"calories"`
	Distance float64 `json:"distance"`
}

// DailyHealthData is one day's accumulated totals.
type DailyHealthData struct {
	Date     string  `json:"date"`
	Steps    int64   `json:"steps"`
	Duration int64   `json:"duration"`
	Calories float64 `json:"calories"`
	Distance float64 `json:"distance"`
}

// StatisticsItem is one grouped bucket of a statistics response. Period is
// the bucket label: the date itself for day grouping, the bucket's first
// date for week and month grouping.
type StatisticsItem struct {
	Period   string  `json:"period"`
	Steps    int64   `json:"steps"`
	Duration int64   `json:"duration"`
	Calories float64 `json:"calories"`
	Distance float64 `json:"distance"`
}

// StatisticsSummary totals every record in the requested range.
type StatisticsSummary struct {
	TotalSteps    int64   `json:"totalSteps"`
	TotalDuration int64   `json:"totalDuration"`
	TotalCalories float64 `json:"totalCalories"`
	TotalDistance float64 `json:"totalDistance"`
	Days          int     `json:"days"`
}

// Statistics is a grouped view over a date range plus its summary.
type Statistics struct {
	Items   []StatisticsItem  `json:"items"`
	Summary StatisticsSummary `json:"summary"`
}

// HealthUsecase ingests activity samples and serves daily and aggregated
// views of them.
type HealthUsecase interface {
	Ingest(ctx context.Context, userID string, sample HealthSample) (*DailyHealthData, error)
	Today(ctx context.Context, userID string) (*DailyHealthData, error)
	Statistics(ctx context.Context, userID, startDate, endDate, period string) (*Statistics, error)
}

type healthUsecase struct {
	healthRepo repository.HealthDataRepository
}

func NewHealthUsecase(healthRepo repository.HealthDataRepository) HealthUsecase {
	return &healthUsecase{healthRepo: healthRepo}
}

func (u *healthUsecase) Ingest(ctx context.Context, userID string, sample HealthSample) (*DailyHealthData, error) {
	date := sample.Date
	if date == "" {
		date = time.Now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, apperror.BadRequest("date must be in YYYY-MM-DD format")
	}

	if sample.Steps < 0 || sample.Duration < 0 || sample.Calories < 0 || sample.Distance < 0 {
		return nil, apperror.BadRequest("health values must not be negative")
	}

	data, err := u.healthRepo.Accumulate(ctx, userID, date, model.HealthData{
		Steps:    sample.Steps,
		Duration: sample.Duration,
		Calories: sample.Calories,
		Distance: sample.Distance,
	})
	if err != nil {
		return nil, apperror.Internal("failed to record health data", err)
	}

	return toDaily(data), nil
}

// Today returns the accumulated record for the current date, or a
// zero-valued record when nothing has been ingested yet.
func (u *healthUsecase) Today(ctx context.Context, userID string) (*DailyHealthData, error) {
	date := time.Now().Format(dateLayout)

	data, err := u.healthRepo.GetByDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &DailyHealthData{Date: date}, nil
		}
		return nil, apperror.Internal("failed to load health data", err)
	}

	return toDaily(data), nil
}

func (u *healthUsecase) Statistics(ctx context.Context, userID, startDate, endDate, period string) (*Statistics, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, apperror.BadRequest("startDate must be in YYYY-MM-DD format")
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, apperror.BadRequest("endDate must be in YYYY-MM-DD format")
	}
	if end.Before(start) {
		return nil, apperror.BadRequest("endDate must not be before startDate")
	}

	switch period {
	case "", "day":
		period = "day"
	case "week", "month":
	default:
		return nil, apperror.BadRequest("period must be one of day, week, month")
	}

	records, err := u.healthRepo.ListRange(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, apperror.Internal("failed to load health data", err)
	}
	if len(records) == 0 {
		return nil, apperror.NotFound("no health data in the requested range")
	}

	stats := &Statistics{}
	index := make(map[string]int)

	for _, record := range records {
		bucket := bucketLabel(record.Date, period)

		i, ok := index[bucket]
		if !ok {
			i = len(stats.Items)
			index[bucket] = i
			stats.Items = append(stats.Items, StatisticsItem{Period: bucket})
		}

		stats.Items[i].Steps += record.Steps
		stats.Items[i].Duration += record.Duration
		stats.Items[i].Calories += record.Calories
		stats.Items[i].Distance += record.Distance

		stats.Summary.TotalSteps += record.Steps
		stats.Summary.TotalDuration += record.Duration
		stats.Summary.TotalCalories += record.Calories
		stats.Summary.TotalDistance += record.Distance
		stats.Summary.Days++
	}

	return stats, nil
}

// bucketLabel maps a date to its grouping bucket: the date itself for day,
// the ISO week's Monday for week, the first of the month for month. Records
// arrive sorted by date, so bucket order falls out of insertion order.
func bucketLabel(date, period string) string {
	switch period {
	case "week":
		t, err := time.Parse(dateLayout, date)
		if err != nil {
			return date
		}
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset).Format(dateLayout)
	case "month":
		if len(date) >= 7 {
			return date[:7] + "-01"
		}
		return date
	default:
		return date
	}
}

func toDaily(data *model.HealthData) *DailyHealthData {
	return &DailyHealthData{
		Date:     data.Date,
		Steps:    data.Steps,
		Duration: data.Duration,
		Calories: data.Calories,
		Distance: data.Distance,
	}
}
