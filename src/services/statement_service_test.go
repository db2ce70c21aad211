package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/processors"
)

func newTestStatementService(t *testing.T) StatementService {
	t.Helper()
	logger.InitLogger("error")
	return NewStatementService(processors.NewQuarterlyProcessor(), processors.NewAnnotationProcessor())
}

func annotateRequest() AnnotateRequest {
	return AnnotateRequest{
		Activity:             []models.ActivityStatementRow{{Account: "A1"}, {Account: "A2"}},
		PreCommitmentPlayers: []models.PreCommitmentPlayer{{Account: "A1", Status: "Active"}},
		CashlessMonths: []models.MonthlyDataset{
			{Month: 7, Year: 2025, Players: []models.PlayerData{{Info: models.PlayerInfo{Account: "A2"}}}},
		},
	}
}

func TestProcessUploadRoutesBySource(t *testing.T) {
	svc := newTestStatementService(t)

	csvInput := "Account Number,First Name,Last Name\nA1,Jane,Doe\n"
	result, err := svc.ProcessUpload(strings.NewReader(csvInput), "activity.csv", SourceActivity)
	if err != nil {
		t.Fatalf("ProcessUpload: %v", err)
	}
	if result.RowCount != 1 || len(result.Activity) != 1 {
		t.Fatalf("result: %+v", result)
	}
	if result.Activity[0].Account != "A1" {
		t.Errorf("Account = %q", result.Activity[0].Account)
	}

	cashlessInput := "Account Number,Statement Month\nA1,7\n"
	result, err = svc.ProcessUpload(strings.NewReader(cashlessInput), "cashless_august.csv", SourceCashless)
	if err != nil {
		t.Fatalf("ProcessUpload cashless: %v", err)
	}
	if result.StatementMonth != 8 {
		t.Errorf("StatementMonth = %d, want 8 inferred from filename", result.StatementMonth)
	}

	if _, err := svc.ProcessUpload(strings.NewReader(csvInput), "x.csv", "unknown"); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestAnnotateValidatesEachCollection(t *testing.T) {
	svc := newTestStatementService(t)

	tests := []struct {
		name    string
		mutate  func(*AnnotateRequest)
		wantErr error
	}{
		{"missing activity", func(r *AnnotateRequest) { r.Activity = nil }, ErrMissingActivityRows},
		{"missing pre-commitment", func(r *AnnotateRequest) { r.PreCommitmentPlayers = nil }, ErrMissingPreCommitmentPlayers},
		{"missing cashless", func(r *AnnotateRequest) { r.CashlessMonths = nil }, ErrMissingCashlessData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := annotateRequest()
			tt.mutate(&req)
			if _, err := svc.Annotate(req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAnnotateJoinsAllThreeDatasets(t *testing.T) {
	svc := newTestStatementService(t)

	result, err := svc.Annotate(annotateRequest())
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if result.Quarterly.Quarter != 3 || result.Quarterly.Year != 2025 {
		t.Errorf("quarterly = Q%d %d", result.Quarterly.Quarter, result.Quarterly.Year)
	}
	if len(result.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(result.Players))
	}
	if result.Players[0].PreCommitment == nil || result.Players[0].Cashless != nil {
		t.Errorf("A1 attachments wrong: %+v", result.Players[0])
	}
	if result.Players[1].PreCommitment != nil || result.Players[1].Cashless == nil {
		t.Errorf("A2 attachments wrong: %+v", result.Players[1])
	}
}

func TestAnnotateAccount(t *testing.T) {
	svc := newTestStatementService(t)

	player, err := svc.AnnotateAccount(annotateRequest(), "A2")
	if err != nil {
		t.Fatalf("AnnotateAccount: %v", err)
	}
	if player.Account != "A2" || player.Cashless == nil {
		t.Errorf("player = %+v", player)
	}

	if _, err := svc.AnnotateAccount(annotateRequest(), "A9"); !errors.Is(err, processors.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
