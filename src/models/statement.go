package models

// Row is one flat spreadsheet row, keyed by header name. Every cell value
// arrives as a string regardless of how the source file typed it.
type Row map[string]string

// PlayerInfo holds the identity/contact snapshot for one account, taken from
// whichever source file most recently observed it.
type PlayerInfo struct {
	Account    string `json:"account"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
	Suburb     string `json:"suburb,omitempty"`
	State      string `json:"state,omitempty"`
	Postcode   string `json:"postcode,omitempty"`
	PlayerType string `json:"playerType,omitempty"`
}

// MonthlyTotals is one account's numeric totals for one calendar month.
type MonthlyTotals struct {
	CashToCard       float64 `json:"cashToCard"`
	GameCreditToCard float64 `json:"gameCreditToCard"`
	CardCreditToGame float64 `json:"cardCreditToGame"`
	TotalBets        float64 `json:"totalBets"`
	DeviceWin        float64 `json:"deviceWin"`
	NetWinLoss       float64 `json:"netWinLoss"`
}

// Add sums the other totals into t, field by field.
func (t *MonthlyTotals) Add(other MonthlyTotals) {
	t.CashToCard += other.CashToCard
	t.GameCreditToCard += other.GameCreditToCard
	t.CardCreditToGame += other.CardCreditToGame
	t.TotalBets += other.TotalBets
	t.DeviceWin += other.DeviceWin
	t.NetWinLoss += other.NetWinLoss
}

// DailyTransaction is one gaming day's slice of the six monthly fields.
// Rows without a gaming date are never emitted as DailyTransactions; the day
// slot is skipped, not zero-filled.
type DailyTransaction struct {
	GamingDate string `json:"gamingDate"` // canonical DD/MM/YYYY
	MonthlyTotals
}

// PlayerData aggregates one account's cashless data: identity, one month's
// (or, after aggregation, one quarter's) totals, and the chronologically
// ordered daily transactions.
type PlayerData struct {
	Info           PlayerInfo         `json:"info"`
	StatementMonth int                `json:"statementMonth"`
	Totals         MonthlyTotals      `json:"totals"`
	Daily          []DailyTransaction `json:"dailyTransactions"`
}

// MonthlyDataset is the per-account cashless data for one calendar month, as
// transformed from a single source file.
type MonthlyDataset struct {
	Month   int          `json:"month"`
	Year    int          `json:"year"`
	Players []PlayerData `json:"players"`
}

// StatementPeriod is an explicit display period supplied by the caller. It is
// stored verbatim and never validated against the quarter.
type StatementPeriod struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// QuarterlyData is the result of folding up to three monthly cashless
// datasets into one per-account quarter view.
type QuarterlyData struct {
	Quarter int              `json:"quarter"`
	Year    int              `json:"year"`
	Players []PlayerData     `json:"players"`
	Months  []MonthlyDataset `json:"months"`
	Period  *StatementPeriod `json:"period,omitempty"`
}

// ActivityMonthBlock is one named month's breakdown inside an activity
// statement row. The month name comes from the source file, not a calendar
// computation.
type ActivityMonthBlock struct {
	MonthName   string `json:"monthName"`
	Turnover    string `json:"turnover"`
	DaysGambled string `json:"daysGambled"`
	NetWinLoss  string `json:"netWinLoss"`
	TimeSpent   string `json:"timeSpent"`
}

// ActivityStatementRow is one account's flat activity-statement record. The
// activity file is the anchor dataset for annotation: an account only appears
// in the annotated output if it has one of these.
type ActivityStatementRow struct {
	Account   string `json:"account"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	Suburb    string `json:"suburb,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`

	IsEmail  bool `json:"isEmail"`
	IsPostal bool `json:"isPostal"`
	IsKiosk  bool `json:"isKiosk"`

	TotalTurnover    string `json:"totalTurnover"`
	TotalDaysGambled string `json:"totalDaysGambled"`
	TotalNetWinLoss  string `json:"totalNetWinLoss"`
	TotalTimeSpent   string `json:"totalTimeSpent"`

	Months []ActivityMonthBlock `json:"months"`
}

// DaySchedule is one weekday's permitted play window.
type DaySchedule struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// SessionSummary is one free-form session line from the pre-commitment file.
type SessionSummary struct {
	Label string `json:"label"`
	Win   string `json:"win"`
	Loss  string `json:"loss"`
	Net   string `json:"net"`
}

// PreCommitmentPlayer is one account's pre-commitment enrollment record.
type PreCommitmentPlayer struct {
	Account   string `json:"account"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`

	// Status is the enrollment/play status string from the source file,
	// e.g. "Play" or "No Play".
	Status string `json:"status"`

	DailyBudgetLimit   string `json:"dailyBudgetLimit"`
	WeeklyBudgetLimit  string `json:"weeklyBudgetLimit"`
	MonthlyBudgetLimit string `json:"monthlyBudgetLimit"`
	DailyTimeLimit     string `json:"dailyTimeLimit"`
	WeeklyTimeLimit    string `json:"weeklyTimeLimit"`
	MonthlyTimeLimit   string `json:"monthlyTimeLimit"`

	Schedule    []DaySchedule    `json:"schedule"`
	BreachCount int              `json:"breachCount"`
	Sessions    []SessionSummary `json:"sessions,omitempty"`
}

// AnnotatedStatementPlayer is the central join record: one per distinct
// account in the activity rows. Activity is always present; PreCommitment and
// Cashless are attached only when a matching account exists in their source,
// and omitted from JSON entirely when absent. Downstream templates key off
// presence, not truthiness.
type AnnotatedStatementPlayer struct {
	Account       string                `json:"account"`
	Activity      *ActivityStatementRow `json:"activity"`
	PreCommitment *PreCommitmentPlayer  `json:"preCommitment,omitempty"`
	Cashless      *PlayerData           `json:"cashless,omitempty"`
}
