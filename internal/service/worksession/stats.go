package worksession

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
)

// DailyStats implements worksession.SessionService.
func (w *WorkSessionServiceImpl) DailyStats(ctx context.Context, employeeID string, date time.Time) (worksession.PeriodStats, error) {
	from := w.midnight(date)
	return w.periodStats(ctx, employeeID, from, from.AddDate(0, 0, 1), false)
}

// WeeklyStats implements worksession.SessionService.
func (w *WorkSessionServiceImpl) WeeklyStats(ctx context.Context, employeeID string, startOfWeek time.Time) (worksession.PeriodStats, error) {
	from := w.midnight(startOfWeek)
	return w.periodStats(ctx, employeeID, from, from.AddDate(0, 0, 7), true)
}

// MonthlyStats implements worksession.SessionService.
func (w *WorkSessionServiceImpl) MonthlyStats(ctx context.Context, employeeID string, month time.Month, year int) (worksession.PeriodStats, error) {
	if month < time.January || month > time.December {
		return worksession.PeriodStats{}, worksession.ErrInvalidMonth
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, w.cfg.Location)
	return w.periodStats(ctx, employeeID, from, from.AddDate(0, 1, 0), true)
}

// midnight takes the calendar date of t as written, so a plain YYYY-MM-DD
// parsed in UTC names the same day in the configured location.
func (w *WorkSessionServiceImpl) midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, w.cfg.Location)
}

// statsSubject resolves whose statistics are requested. Looking at another
// employee requires the view-all permission.
func statsSubject(ctx context.Context, employeeID string) (string, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return "", err
	}
	if employeeID == "" || employeeID == actor.EmployeeID {
		return actor.EmployeeID, nil
	}
	if !user.HasPermission(actor.Role, user.PermissionSessionViewAll) {
		return "", worksession.ErrForbidden
	}
	return employeeID, nil
}

// periodStats aggregates finalized sessions started in [from, to). Running
// and paused sessions contribute nothing until they are stopped.
func (w *WorkSessionServiceImpl) periodStats(ctx context.Context, employeeID string, from, to time.Time, withDays bool) (worksession.PeriodStats, error) {
	subject, err := statsSubject(ctx, employeeID)
	if err != nil {
		return worksession.PeriodStats{}, err
	}

	sessions, err := w.SessionRepository.ListFinalized(ctx, subject, from, to)
	if err != nil {
		return worksession.PeriodStats{}, fmt.Errorf("failed to list work sessions: %w", err)
	}

	total := bucket{}
	var days map[string]*bucket
	if withDays {
		days = make(map[string]*bucket)
	}

	for _, s := range sessions {
		if s.Totals == nil {
			continue
		}
		total.add(s)
		if withDays {
			key := s.StartTime.In(w.cfg.Location).Format(time.DateOnly)
			if days[key] == nil {
				days[key] = &bucket{}
			}
			days[key].add(s)
		}
	}

	stats := worksession.PeriodStats{
		EmployeeID:           subject,
		From:                 from.Format(time.DateOnly),
		To:                   to.AddDate(0, 0, -1).Format(time.DateOnly),
		TotalHours:           round2(total.hours),
		ProductiveHours:      round2(total.productiveHours),
		SessionCount:         total.sessions,
		ScreenshotCount:      total.screenshots,
		AverageActivityLevel: total.averageActivity(),
	}

	if withDays {
		for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
			key := day.Format(time.DateOnly)
			b := days[key]
			if b == nil {
				b = &bucket{}
			}
			stats.Days = append(stats.Days, worksession.DayStats{
				Date:                 key,
				TotalHours:           round2(b.hours),
				ProductiveHours:      round2(b.productiveHours),
				SessionCount:         b.sessions,
				ScreenshotCount:      b.screenshots,
				AverageActivityLevel: b.averageActivity(),
			})
		}
	}

	return stats, nil
}

type bucket struct {
	hours           float64
	productiveHours float64
	sessions        int
	screenshots     int
	activitySum     float64
}

func (b *bucket) add(s worksession.Session) {
	b.hours += s.Totals.TotalHours
	b.productiveHours += s.Totals.ProductiveHours
	b.sessions++
	b.screenshots += s.ActiveScreenshots()
	b.activitySum += s.Totals.AverageActivityLevel
}

func (b *bucket) averageActivity() float64 {
	if b.sessions == 0 {
		return 0
	}
	return round2(b.activitySum / float64(b.sessions))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
