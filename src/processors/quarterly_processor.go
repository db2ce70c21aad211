package processors

import (
	"sort"
	"strings"

	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/utils"
)

type quarterlyProcessorImpl struct{}

// NewQuarterlyProcessor creates a new instance of QuarterlyProcessor.
func NewQuarterlyProcessor() QuarterlyProcessor {
	return &quarterlyProcessorImpl{}
}

// Aggregate folds the supplied monthly datasets, assumed already in
// chronological order, into one QuarterlyData. The quarter and year derive
// from the first month; per-account totals are summed and daily transactions
// appended, then re-sorted by gaming date. An empty input is a hard failure:
// callers never invoke the aggregator with zero months.
func (p *quarterlyProcessorImpl) Aggregate(months []models.MonthlyDataset, period *models.StatementPeriod) (*models.QuarterlyData, error) {
	if len(months) == 0 {
		return nil, ErrNoMonthlyData
	}

	quarterly := &models.QuarterlyData{
		Quarter: (months[0].Month + 2) / 3,
		Year:    months[0].Year,
		Period:  period,
	}

	byAccount := make(map[string]int) // normalized account -> index into Players
	for _, month := range months {
		breakdown := models.MonthlyDataset{Month: month.Month, Year: month.Year}

		for _, player := range month.Players {
			// The row may carry a stale statement month baked in by the
			// source file; the month being folded wins.
			player.StatementMonth = month.Month
			breakdown.Players = append(breakdown.Players, player)

			key := strings.TrimSpace(player.Info.Account)
			if idx, ok := byAccount[key]; ok {
				existing := &quarterly.Players[idx]
				existing.Totals.Add(player.Totals)
				existing.Daily = append(existing.Daily, player.Daily...)
			} else {
				byAccount[key] = len(quarterly.Players)
				// Own the daily slice so later appends and the final sort
				// never disturb the per-month breakdown rows.
				player.Daily = append([]models.DailyTransaction(nil), player.Daily...)
				quarterly.Players = append(quarterly.Players, player)
			}
		}

		quarterly.Months = append(quarterly.Months, breakdown)
	}

	// Dailies from later months were appended after earlier ones; restore
	// chronological order. The sort is stable so same-date transactions keep
	// their input order.
	for i := range quarterly.Players {
		daily := quarterly.Players[i].Daily
		sort.SliceStable(daily, func(a, b int) bool {
			return utils.ParseDDMMYYYY(daily[a].GamingDate).Before(utils.ParseDDMMYYYY(daily[b].GamingDate))
		})
	}

	return quarterly, nil
}
