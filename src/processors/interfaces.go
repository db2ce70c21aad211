package processors

import (
	"errors"

	"github.com/username/playerstatements/backend/src/models"
)

var (
	ErrNoMonthlyData   = errors.New("no monthly datasets supplied for aggregation")
	ErrAccountNotFound = errors.New("account not found in annotated statement set")
)

// QuarterlyProcessor folds monthly cashless datasets into one quarterly view.
type QuarterlyProcessor interface {
	Aggregate(months []models.MonthlyDataset, period *models.StatementPeriod) (*models.QuarterlyData, error)
}

// AnnotationProcessor joins the three member datasets into annotated
// statement players, anchored on the activity rows.
type AnnotationProcessor interface {
	Annotate(activity []models.ActivityStatementRow, preCommitment []models.PreCommitmentPlayer, quarterly *models.QuarterlyData) []models.AnnotatedStatementPlayer
	FindAccount(players []models.AnnotatedStatementPlayer, account string) (*models.AnnotatedStatementPlayer, error)
}
