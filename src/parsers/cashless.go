package parsers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/utils"
)

// monthPatterns is checked in order; full names before abbreviations so
// "September" is inspected before "Sep".
var monthPatterns = []struct {
	pattern string
	month   int
}{
	{"january", 1}, {"february", 2}, {"march", 3}, {"april", 4},
	{"may", 5}, {"june", 6}, {"july", 7}, {"august", 8},
	{"september", 9}, {"october", 10}, {"november", 11}, {"december", 12},
	{"jan", 1}, {"feb", 2}, {"mar", 3}, {"apr", 4},
	{"jun", 6}, {"jul", 7}, {"aug", 8},
	{"sept", 9}, {"sep", 9}, {"oct", 10}, {"nov", 11}, {"dec", 12},
}

// MonthFromFilename infers a statement month from a source filename by
// case-insensitive month name/abbreviation match. Returns 0 when no month
// name is present.
func MonthFromFilename(filename string) int {
	lower := strings.ToLower(filename)
	for _, p := range monthPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.month
		}
	}
	return 0
}

// TransformCashlessRows maps raw monthly cashless rows to per-account
// PlayerData. The statement month comes from the filename when one is
// supplied and contains a month name, overriding whatever the rows carry;
// otherwise each row's own "Statement Month" field is used, defaulting to 0
// when unparsable. Rows with an empty account number are dropped.
func TransformCashlessRows(rows []models.Row, filename string) []models.PlayerData {
	fileMonth := 0
	if filename != "" {
		fileMonth = MonthFromFilename(filename)
	}

	out := make([]models.PlayerData, 0, len(rows))
	for _, row := range rows {
		if row[colAccount] == "" {
			continue
		}

		month := fileMonth
		if month == 0 {
			month, _ = strconv.Atoi(strings.TrimSpace(row["Statement Month"]))
		}

		out = append(out, transformCashlessRow(row, month))
	}
	return out
}

func transformCashlessRow(row models.Row, month int) models.PlayerData {
	data := models.PlayerData{
		Info: models.PlayerInfo{
			Account:    row[colAccount],
			FirstName:  row[colFirstName],
			LastName:   row[colLastName],
			Email:      row[colEmail],
			Address:    row[colAddress],
			Suburb:     row[colSuburb],
			State:      row[colState],
			Postcode:   row[colPostcode],
			PlayerType: row["Player Type"],
		},
		StatementMonth: month,
		Totals:         totalsFromRow(row, ""),
	}

	// Up to 31 positional day groups, one per column suffix. A day exists
	// only if its gaming-date cell is non-empty; missing days are skipped,
	// never zero-filled.
	for day := 1; day <= 31; day++ {
		suffix := fmt.Sprintf(" %d", day)
		gamingDate := utils.NormalizeDate(row["Gaming Date"+suffix])
		if gamingDate == "" {
			continue
		}
		data.Daily = append(data.Daily, models.DailyTransaction{
			GamingDate:    gamingDate,
			MonthlyTotals: totalsFromRow(row, suffix),
		})
	}

	return data
}

func totalsFromRow(row models.Row, suffix string) models.MonthlyTotals {
	return models.MonthlyTotals{
		CashToCard:       utils.ParseNumeric(row["Cash to Card"+suffix]),
		GameCreditToCard: utils.ParseNumeric(row["Game Credit to Card"+suffix]),
		CardCreditToGame: utils.ParseNumeric(row["Card Credit to Game"+suffix]),
		TotalBets:        utils.ParseNumeric(row["Total Bets"+suffix]),
		DeviceWin:        utils.ParseNumeric(row["Device Win"+suffix]),
		NetWinLoss:       utils.ParseNumeric(row["Net Win/Loss"+suffix]),
	}
}
