package services

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/playerstatements/backend/src/database"
	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/processors"
	"github.com/username/playerstatements/backend/src/security"
)

func newTestBatchService(t *testing.T, ttl time.Duration) BatchService {
	t.Helper()
	logger.InitLogger("error")
	database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { database.DB.Close() })

	cipher, err := security.NewFieldCipher(bytes.Repeat([]byte{0x5a}, 32))
	if err != nil {
		t.Fatalf("NewFieldCipher: %v", err)
	}
	metadataCache := cache.New(ttl, time.Minute)
	return NewBatchService(processors.NewAnnotationProcessor(), cipher, metadataCache, ttl)
}

func testMetadata(accounts ...string) *models.BatchMetadata {
	metadata := &models.BatchMetadata{
		QuarterlyData: &models.QuarterlyData{Quarter: 3, Year: 2025},
	}
	for _, account := range accounts {
		metadata.QuarterlyData.Players = append(metadata.QuarterlyData.Players, models.PlayerData{
			Info: models.PlayerInfo{Account: account},
		})
		metadata.PreCommitmentPlayers = append(metadata.PreCommitmentPlayers, models.PreCommitmentPlayer{
			Account: account,
			Status:  "Active",
		})
	}
	if len(metadata.PreCommitmentPlayers) == 0 {
		metadata.PreCommitmentPlayers = []models.PreCommitmentPlayer{{Account: "X0", Status: "Active"}}
	}
	return metadata
}

func testActivity(accounts ...string) []models.ActivityStatementRow {
	rows := make([]models.ActivityStatementRow, 0, len(accounts))
	for _, account := range accounts {
		rows = append(rows, models.ActivityStatementRow{
			Account:   account,
			FirstName: "Player",
			LastName:  account,
		})
	}
	return rows
}

func TestInitBatchRequiresMetadata(t *testing.T) {
	svc := newTestBatchService(t, time.Minute)

	tests := []struct {
		name     string
		metadata *models.BatchMetadata
	}{
		{"nil metadata", nil},
		{"missing quarterly data", &models.BatchMetadata{PreCommitmentPlayers: []models.PreCommitmentPlayer{{Account: "A1"}}}},
		{"missing pre-commitment players", &models.BatchMetadata{QuarterlyData: &models.QuarterlyData{Quarter: 3, Year: 2025}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.InitBatch(3, 2025, 100, tt.metadata); !errors.Is(err, ErrMissingBatchMetadata) {
				t.Fatalf("expected ErrMissingBatchMetadata, got %v", err)
			}
		})
	}
}

func TestBatchLifecycleAuthoritativeTotal(t *testing.T) {
	svc := newTestBatchService(t, time.Minute)

	// Deliberately wrong estimate; finalize must overwrite it.
	batchID, err := svc.InitBatch(3, 2025, 1000, testMetadata("A1", "A2", "A3"))
	if err != nil {
		t.Fatalf("InitBatch: %v", err)
	}

	batch, err := svc.GetBatch(batchID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if batch.Status != models.BatchStatusOpen || batch.TotalAccounts != 1000 {
		t.Fatalf("after init: status=%q totalAccounts=%d", batch.Status, batch.TotalAccounts)
	}

	first, err := svc.SaveChunk(batchID, testActivity("A1", "A2", "A3"), nil, nil)
	if err != nil {
		t.Fatalf("SaveChunk 1: %v", err)
	}
	if first.SavedCount != 3 || first.AlreadySaved {
		t.Fatalf("chunk 1: %+v", first)
	}
	second, err := svc.SaveChunk(batchID, testActivity("B1", "B2"), nil, nil)
	if err != nil {
		t.Fatalf("SaveChunk 2: %v", err)
	}
	if second.SavedCount != 2 {
		t.Fatalf("chunk 2: %+v", second)
	}

	period := &models.StatementPeriod{StartDate: "2025-07-01", EndDate: "2025-09-30"}
	result, err := svc.FinalizeBatch(batchID, period)
	if err != nil {
		t.Fatalf("FinalizeBatch: %v", err)
	}
	if result.AuthoritativeTotal != 5 {
		t.Errorf("AuthoritativeTotal = %d, want 5", result.AuthoritativeTotal)
	}

	batch, err = svc.GetBatch(batchID)
	if err != nil {
		t.Fatalf("GetBatch after finalize: %v", err)
	}
	if batch.Status != models.BatchStatusFinalized {
		t.Errorf("Status = %q, want finalized", batch.Status)
	}
	if batch.TotalAccounts != 5 {
		t.Errorf("TotalAccounts = %d, want the counted total, not the estimate", batch.TotalAccounts)
	}
	if batch.StartDate != "2025-07-01" || batch.EndDate != "2025-09-30" {
		t.Errorf("period = %q..%q", batch.StartDate, batch.EndDate)
	}

	// Finalize is a recompute, so re-running it changes nothing.
	again, err := svc.FinalizeBatch(batchID, nil)
	if err != nil {
		t.Fatalf("FinalizeBatch again: %v", err)
	}
	if again.AuthoritativeTotal != 5 {
		t.Errorf("repeated finalize total = %d, want 5", again.AuthoritativeTotal)
	}
	batch, _ = svc.GetBatch(batchID)
	if batch.StartDate != "2025-07-01" {
		t.Errorf("repeated finalize with nil range cleared StartDate: %q", batch.StartDate)
	}
}

func TestSaveChunkValidation(t *testing.T) {
	svc := newTestBatchService(t, time.Minute)

	if _, err := svc.SaveChunk("no-such-batch", testActivity("A1"), nil, nil); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}

	batchID, err := svc.InitBatch(3, 2025, 10, testMetadata())
	if err != nil {
		t.Fatalf("InitBatch: %v", err)
	}
	if _, err := svc.SaveChunk(batchID, nil, nil, nil); !errors.Is(err, ErrMissingActivityRows) {
		t.Fatalf("expected ErrMissingActivityRows, got %v", err)
	}
}

func TestSaveChunkRedeliveryIsNoOp(t *testing.T) {
	svc := newTestBatchService(t, time.Minute)
	batchID, err := svc.InitBatch(3, 2025, 10, testMetadata("A1", "A2"))
	if err != nil {
		t.Fatalf("InitBatch: %v", err)
	}

	seq := 1
	first, err := svc.SaveChunk(batchID, testActivity("A1", "A2"), nil, &seq)
	if err != nil {
		t.Fatalf("SaveChunk: %v", err)
	}
	if first.SavedCount != 2 || first.AlreadySaved {
		t.Fatalf("first delivery: %+v", first)
	}

	redelivered, err := svc.SaveChunk(batchID, testActivity("A1", "A2"), nil, &seq)
	if err != nil {
		t.Fatalf("SaveChunk redelivery: %v", err)
	}
	if !redelivered.AlreadySaved || redelivered.SavedCount != 0 {
		t.Fatalf("redelivery: %+v", redelivered)
	}

	result, err := svc.FinalizeBatch(batchID, nil)
	if err != nil {
		t.Fatalf("FinalizeBatch: %v", err)
	}
	if result.AuthoritativeTotal != 2 {
		t.Errorf("AuthoritativeTotal = %d, want 2 after redelivery", result.AuthoritativeTotal)
	}
}

func TestSaveChunkFallsBackToPersistedMetadata(t *testing.T) {
	// TTL short enough that the cache entry is gone by the time the chunk
	// arrives; the service must reload the persisted copy.
	svc := newTestBatchService(t, time.Millisecond)
	batchID, err := svc.InitBatch(3, 2025, 10, testMetadata("A1"))
	if err != nil {
		t.Fatalf("InitBatch: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	result, err := svc.SaveChunk(batchID, testActivity("A1"), nil, nil)
	if err != nil {
		t.Fatalf("SaveChunk after cache expiry: %v", err)
	}
	if result.SavedCount != 1 {
		t.Fatalf("result: %+v", result)
	}

	players, err := svc.GetBatchPlayers(batchID)
	if err != nil {
		t.Fatalf("GetBatchPlayers: %v", err)
	}
	if players[0].Player.PreCommitment == nil {
		t.Error("metadata fallback lost the pre-commitment match")
	}
}

func TestSaveChunkMissingMetadata(t *testing.T) {
	svc := newTestBatchService(t, time.Millisecond)
	batchID, err := svc.InitBatch(3, 2025, 10, testMetadata("A1"))
	if err != nil {
		t.Fatalf("InitBatch: %v", err)
	}

	// Simulate a batch whose persisted metadata is gone and whose cache
	// entry has expired.
	if _, err := database.DB.Exec(`DELETE FROM batch_metadata WHERE batch_id = ?`, batchID); err != nil {
		t.Fatalf("deleting metadata: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := svc.SaveChunk(batchID, testActivity("A1"), nil, nil); !errors.Is(err, ErrMissingBatchMetadata) {
		t.Fatalf("expected ErrMissingBatchMetadata, got %v", err)
	}

	// Inline metadata on the chunk itself repairs the batch.
	result, err := svc.SaveChunk(batchID, testActivity("A1"), testMetadata("A1"), nil)
	if err != nil {
		t.Fatalf("SaveChunk with inline metadata: %v", err)
	}
	if result.SavedCount != 1 {
		t.Fatalf("result: %+v", result)
	}
}

func TestBatchPlayersEncryptedAtRest(t *testing.T) {
	svc := newTestBatchService(t, time.Minute)
	batchID, err := svc.InitBatch(3, 2025, 10, testMetadata("A1"))
	if err != nil {
		t.Fatalf("InitBatch: %v", err)
	}
	if _, err := svc.SaveChunk(batchID, testActivity("A1", "A2"), nil, nil); err != nil {
		t.Fatalf("SaveChunk: %v", err)
	}

	var storedAccount, storedActivity string
	err = database.DB.QueryRow(
		`SELECT account_number, activity_statement FROM statement_players WHERE batch_id = ? ORDER BY id LIMIT 1`,
		batchID,
	).Scan(&storedAccount, &storedActivity)
	if err != nil {
		t.Fatalf("querying raw row: %v", err)
	}
	if !strings.HasPrefix(storedAccount, "DENC:") {
		t.Errorf("stored account = %q, want deterministic encryption", storedAccount)
	}
	if !strings.HasPrefix(storedActivity, "ENC:") {
		t.Errorf("stored activity payload = %q, want standard encryption", storedActivity)
	}

	players, err := svc.GetBatchPlayers(batchID)
	if err != nil {
		t.Fatalf("GetBatchPlayers: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
	if players[0].Account != "A1" {
		t.Errorf("Account = %q, want decrypted A1", players[0].Account)
	}
	if players[0].Player.Activity == nil || players[0].Player.Activity.LastName != "A1" {
		t.Errorf("Activity payload did not round-trip: %+v", players[0].Player.Activity)
	}
	// A2 is not in the shared metadata, so its sections must stay absent.
	if players[1].Player.PreCommitment != nil || players[1].Player.Cashless != nil {
		t.Error("unmatched account gained pre-commitment or cashless sections")
	}

	if _, err := svc.GetBatchPlayers("no-such-batch"); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}

	batches, err := svc.ListBatches()
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(batches) != 1 || batches[0].ID != batchID {
		t.Errorf("ListBatches = %+v", batches)
	}
}
