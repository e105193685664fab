// Package actions summarizes the backend's logged agent actions for charts.
//
// Both views are pure functions of the input and are recomputed from scratch
// on every page load.
package actions

import (
	"sort"

	"github.com/ashureev/tradedesk/internal/domain"
)

// CountByCategory counts actions per category. Every category is present in
// the result, and the counts always sum to len(actions).
func CountByCategory(actions []domain.LoggedAction) map[domain.ActionCategory]int {
	counts := make(map[domain.ActionCategory]int, len(domain.Categories))
	for _, c := range domain.Categories {
		counts[c] = 0
	}
	for _, a := range actions {
		counts[a.Category()]++
	}
	return counts
}

// DailyCounts is a dense day by category grid. Series[c][i] is the number of
// actions of category c on Days[i].
type DailyCounts struct {
	Days       []string                        `json:"days"`
	Categories []domain.ActionCategory         `json:"categories"`
	Series     map[domain.ActionCategory][]int `json:"series"`
}

// Count returns the cell for day and category, zero when absent.
func (d DailyCounts) Count(day string, c domain.ActionCategory) int {
	i := sort.SearchStrings(d.Days, day)
	if i == len(d.Days) || d.Days[i] != day {
		return 0
	}
	return d.Series[c][i]
}

// CountByDay groups actions by the date part of their timestamp and then by
// category. Days are sorted ascending and every cell of the grid is present.
func CountByDay(actions []domain.LoggedAction) DailyCounts {
	perDay := make(map[string]map[domain.ActionCategory]int)
	for _, a := range actions {
		day := a.Day()
		if perDay[day] == nil {
			perDay[day] = make(map[domain.ActionCategory]int, len(domain.Categories))
		}
		perDay[day][a.Category()]++
	}

	days := make([]string, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Strings(days)

	series := make(map[domain.ActionCategory][]int, len(domain.Categories))
	for _, c := range domain.Categories {
		row := make([]int, len(days))
		for i, day := range days {
			row[i] = perDay[day][c]
		}
		series[c] = row
	}

	categories := make([]domain.ActionCategory, len(domain.Categories))
	copy(categories, domain.Categories)

	return DailyCounts{Days: days, Categories: categories, Series: series}
}

// CategoryCount is one slice of the proportion chart.
type CategoryCount struct {
	Category domain.ActionCategory `json:"category"`
	Label    string                `json:"label"`
	Count    int                   `json:"count"`
}

// ChartData bundles both views in display order.
type ChartData struct {
	Total      int             `json:"total"`
	Categories []CategoryCount `json:"categories"`
	Daily      DailyCounts     `json:"daily"`
}

// BuildChartData computes the chart payload for the activity log page.
func BuildChartData(actions []domain.LoggedAction) ChartData {
	counts := CountByCategory(actions)
	cats := make([]CategoryCount, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		cats = append(cats, CategoryCount{Category: c, Label: c.Label(), Count: counts[c]})
	}
	return ChartData{
		Total:      len(actions),
		Categories: cats,
		Daily:      CountByDay(actions),
	}
}
