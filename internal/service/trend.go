package service

import (
	"math"

	"github.com/gamepulse/admin-sync-service/internal/domain/model"
)

const trendWindow = 7

// weekOverWeek computes the week-over-week trend percentage from a
// time-ordered (date, count) series: the most recent 7 points against the
// preceding 7. An empty window yields 0; a zero previous-window sum yields
// 100 when the recent window is positive, else 0.
func weekOverWeek(points []model.TrendPoint) int {
	if len(points) == 0 {
		return 0
	}

	recentFrom := len(points) - trendWindow
	if recentFrom < 0 {
		recentFrom = 0
	}
	prevFrom := recentFrom - trendWindow
	if prevFrom < 0 {
		prevFrom = 0
	}

	recent := sumCounts(points[recentFrom:])
	previous := sumCounts(points[prevFrom:recentFrom])

	if recentFrom == 0 {
		// No previous window at all.
		return 0
	}
	if previous == 0 {
		if recent > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round(float64(recent-previous) / float64(previous) * 100))
}

func sumCounts(points []model.TrendPoint) int {
	var sum int
	for _, p := range points {
		sum += p.Count
	}
	return sum
}
