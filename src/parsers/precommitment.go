package parsers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/utils"
)

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// maxSessionColumns bounds the positional "Session N ..." column scan.
const maxSessionColumns = 50

// TransformPreCommitmentRows maps raw pre-commitment export rows to typed
// records. Rows with an empty account number are dropped.
func TransformPreCommitmentRows(rows []models.Row) []models.PreCommitmentPlayer {
	out := make([]models.PreCommitmentPlayer, 0, len(rows))
	for _, row := range rows {
		if row[colAccount] == "" {
			continue
		}
		out = append(out, transformPreCommitmentRow(row))
	}
	return out
}

func transformPreCommitmentRow(row models.Row) models.PreCommitmentPlayer {
	breachCount, _ := strconv.Atoi(strings.TrimSpace(row["Breach Count"]))

	player := models.PreCommitmentPlayer{
		Account:   row[colAccount],
		FirstName: row[colFirstName],
		LastName:  row[colLastName],
		Status:    strings.TrimSpace(row["Status"]),

		DailyBudgetLimit:   utils.FormatCurrencyString(row["Daily Budget Limit"]),
		WeeklyBudgetLimit:  utils.FormatCurrencyString(row["Weekly Budget Limit"]),
		MonthlyBudgetLimit: utils.FormatCurrencyString(row["Monthly Budget Limit"]),
		DailyTimeLimit:     utils.DisplayValue(row["Daily Time Limit"]),
		WeeklyTimeLimit:    utils.DisplayValue(row["Weekly Time Limit"]),
		MonthlyTimeLimit:   utils.DisplayValue(row["Monthly Time Limit"]),

		BreachCount: breachCount,
	}

	// Times arrive either as HH:MM strings or Excel fractional-day serials.
	for _, day := range weekdays {
		player.Schedule = append(player.Schedule, models.DaySchedule{
			Day:   day,
			Start: utils.NormalizeTime(row[day+" Start"]),
			End:   utils.NormalizeTime(row[day+" End"]),
		})
	}

	for i := 1; i <= maxSessionColumns; i++ {
		label := strings.TrimSpace(row[fmt.Sprintf("Session %d", i)])
		if label == "" {
			continue
		}
		player.Sessions = append(player.Sessions, models.SessionSummary{
			Label: label,
			Win:   utils.FormatCurrencyString(row[fmt.Sprintf("Session %d Win", i)]),
			Loss:  utils.FormatCurrencyString(row[fmt.Sprintf("Session %d Loss", i)]),
			Net:   utils.FormatCurrencyString(row[fmt.Sprintf("Session %d Net", i)]),
		})
	}

	return player
}
