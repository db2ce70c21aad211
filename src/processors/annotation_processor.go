package processors

import (
	"fmt"
	"strings"

	"github.com/username/playerstatements/backend/src/models"
)

type annotationProcessorImpl struct{}

// NewAnnotationProcessor creates a new instance of AnnotationProcessor.
func NewAnnotationProcessor() AnnotationProcessor {
	return &annotationProcessorImpl{}
}

// Annotate joins the three datasets on normalized account number. The
// activity rows are the anchor set: output contains exactly one record per
// distinct normalized account appearing in them, in first-appearance order.
// Pre-commitment and cashless records are attached when a match exists and
// omitted entirely when not; the PDF templates decide whether to render a
// section by presence, so absent must never be encoded as an empty value.
//
// Zero activity rows produce zero output, not an error; required-input
// validation belongs to the service boundary.
func (p *annotationProcessorImpl) Annotate(activity []models.ActivityStatementRow, preCommitment []models.PreCommitmentPlayer, quarterly *models.QuarterlyData) []models.AnnotatedStatementPlayer {
	preCommitByAccount := make(map[string]models.PreCommitmentPlayer, len(preCommitment))
	for _, player := range preCommitment {
		// Last-write-wins when the source file repeats an account.
		preCommitByAccount[normalizeKey(player.Account)] = player
	}

	var cashlessByAccount map[string]models.PlayerData
	if quarterly != nil {
		cashlessByAccount = make(map[string]models.PlayerData, len(quarterly.Players))
		for _, player := range quarterly.Players {
			cashlessByAccount[normalizeKey(player.Info.Account)] = player
		}
	}

	seen := make(map[string]bool, len(activity))
	annotated := make([]models.AnnotatedStatementPlayer, 0, len(activity))
	for i := range activity {
		key := normalizeKey(activity[i].Account)
		if seen[key] {
			continue
		}
		seen[key] = true

		row := activity[i]
		player := models.AnnotatedStatementPlayer{
			Account:  key,
			Activity: &row,
		}
		if match, ok := preCommitByAccount[key]; ok {
			player.PreCommitment = &match
		}
		if match, ok := cashlessByAccount[key]; ok {
			player.Cashless = &match
		}
		annotated = append(annotated, player)
	}

	return annotated
}

// FindAccount extracts a single annotated player by account number. Absence
// is a not-found error, never a silently defaulted record.
func (p *annotationProcessorImpl) FindAccount(players []models.AnnotatedStatementPlayer, account string) (*models.AnnotatedStatementPlayer, error) {
	key := normalizeKey(account)
	for i := range players {
		if players[i].Account == key {
			return &players[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
}

// normalizeKey trims outer whitespace only. No case folding, no numeric
// reinterpretation, no leading-zero stripping: "0042" and "42" are different
// accounts.
func normalizeKey(account string) string {
	return strings.TrimSpace(account)
}
