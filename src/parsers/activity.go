package parsers

import (
	"fmt"

	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/utils"
)

// Activity statement export column names. The three month blocks carry their
// own month name from the source file; nothing here computes calendar months.
const (
	colAccount   = "Account Number"
	colFirstName = "First Name"
	colLastName  = "Last Name"
	colEmail     = "Email"
	colAddress   = "Address"
	colSuburb    = "Suburb"
	colState     = "State"
	colPostcode  = "Postcode"
)

// TransformActivityRows maps raw activity-statement rows to typed records.
// Rows with an empty account number are dropped.
func TransformActivityRows(rows []models.Row) []models.ActivityStatementRow {
	out := make([]models.ActivityStatementRow, 0, len(rows))
	for _, row := range rows {
		if row[colAccount] == "" {
			continue
		}
		out = append(out, transformActivityRow(row))
	}
	return out
}

func transformActivityRow(row models.Row) models.ActivityStatementRow {
	activity := models.ActivityStatementRow{
		Account:   row[colAccount],
		FirstName: row[colFirstName],
		LastName:  row[colLastName],
		Email:     row[colEmail],
		Address:   row[colAddress],
		Suburb:    row[colSuburb],
		State:     row[colState],
		Postcode:  row[colPostcode],

		IsEmail:  utils.ParseBoolFlag(row["Is Email"]),
		IsPostal: utils.ParseBoolFlag(row["Is Postal"]),
		IsKiosk:  utils.ParseBoolFlag(row["Is Kiosk"]),

		TotalTurnover:    utils.FormatCurrencyString(row["Total Turnover"]),
		TotalDaysGambled: utils.DisplayValue(row["Total Days Gambled"]),
		TotalNetWinLoss:  utils.FormatCurrencyString(row["Total Net Win/Loss"]),
		TotalTimeSpent:   utils.DisplayValue(row["Total Time Spent"]),
	}

	for i := 1; i <= 3; i++ {
		prefix := fmt.Sprintf("Month %d", i)
		activity.Months = append(activity.Months, models.ActivityMonthBlock{
			MonthName:   utils.DisplayValue(row[prefix+" Name"]),
			Turnover:    utils.FormatCurrencyString(row[prefix+" Turnover"]),
			DaysGambled: utils.DisplayValue(row[prefix+" Days Gambled"]),
			NetWinLoss:  utils.FormatCurrencyString(row[prefix+" Net Win/Loss"]),
			TimeSpent:   utils.DisplayValue(row[prefix+" Time Spent"]),
		})
	}

	return activity
}
