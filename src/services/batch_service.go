package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/playerstatements/backend/src/database"
	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/processors"
	"github.com/username/playerstatements/backend/src/security"
)

// maxErrorDetail bounds how much of an underlying failure is echoed back to
// callers. Chunk payloads are large; a verbatim driver error that quotes the
// statement can itself be megabytes.
const maxErrorDetail = 500

type batchServiceImpl struct {
	annotator     processors.AnnotationProcessor
	cipher        *security.FieldCipher
	metadataCache *cache.Cache
	cacheTTL      time.Duration
}

func NewBatchService(annotator processors.AnnotationProcessor, cipher *security.FieldCipher, metadataCache *cache.Cache, cacheTTL time.Duration) BatchService {
	return &batchServiceImpl{
		annotator:     annotator,
		cipher:        cipher,
		metadataCache: metadataCache,
		cacheTTL:      cacheTTL,
	}
}

// InitBatch allocates a new batch identity, persists the shared metadata once
// for the whole batch and primes the metadata cache. The estimated total is
// stored as-is but is advisory only; finalize replaces it with a count of
// what was actually ingested.
func (s *batchServiceImpl) InitBatch(quarter, year, estimatedTotal int, metadata *models.BatchMetadata) (string, error) {
	if metadata == nil || metadata.QuarterlyData == nil {
		return "", fmt.Errorf("%w: quarterlyData is required at init", ErrMissingBatchMetadata)
	}
	if len(metadata.PreCommitmentPlayers) == 0 {
		return "", fmt.Errorf("%w: preCommitmentPlayers is required at init", ErrMissingBatchMetadata)
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()

	encryptedMetadata, err := s.marshalMetadata(metadata)
	if err != nil {
		return "", err
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return "", fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.Exec(
		`INSERT INTO generation_batches (id, quarter, year, generation_date, total_accounts, status) VALUES (?, ?, ?, ?, ?, ?)`,
		batchID, quarter, year, now, estimatedTotal, models.BatchStatusOpen,
	)
	if err != nil {
		return "", fmt.Errorf("error inserting generation batch: %w", err)
	}

	_, err = dbTx.Exec(`INSERT INTO batch_metadata (batch_id, metadata) VALUES (?, ?)`, batchID, encryptedMetadata)
	if err != nil {
		return "", fmt.Errorf("error inserting batch metadata: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return "", fmt.Errorf("error committing batch init: %w", err)
	}

	s.metadataCache.Set(batchID, metadata, s.cacheTTL)
	logger.L.Info("Batch initialized", "batchID", batchID, "quarter", quarter, "year", year, "estimatedTotal", estimatedTotal)
	return batchID, nil
}

// SaveChunk matches one slice of activity rows against the batch's shared
// metadata and appends the annotated records to the batch, all-or-nothing.
// The optional chunkSeq makes redelivery a no-op: a sequence number that was
// already ingested is reported as AlreadySaved without inserting anything.
func (s *batchServiceImpl) SaveChunk(batchID string, activity []models.ActivityStatementRow, metadata *models.BatchMetadata, chunkSeq *int) (*ChunkResult, error) {
	if _, err := s.GetBatch(batchID); err != nil {
		return nil, err
	}
	if len(activity) == 0 {
		return nil, ErrMissingActivityRows
	}

	resolved, err := s.resolveMetadata(batchID, metadata)
	if err != nil {
		return nil, err
	}

	if chunkSeq != nil {
		var existing int
		err := database.DB.QueryRow(
			`SELECT COUNT(*) FROM statement_players WHERE batch_id = ? AND chunk_seq = ?`,
			batchID, *chunkSeq,
		).Scan(&existing)
		if err != nil {
			return nil, fmt.Errorf("%w: checking chunk sequence: %v", ErrChunkSaveFailed, err)
		}
		if existing > 0 {
			logger.L.Info("Chunk redelivery detected, skipping", "batchID", batchID, "chunkSeq", *chunkSeq)
			return &ChunkResult{SavedCount: 0, AlreadySaved: true}, nil
		}
	}

	annotated := s.annotator.Annotate(activity, resolved.PreCommitmentPlayers, resolved.QuarterlyData)

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %v", ErrChunkSaveFailed, err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO statement_players (batch_id, account_number, activity_statement, pre_commitment, cashless_statement, chunk_seq) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("%w: preparing insert statement: %v", ErrChunkSaveFailed, err)
	}
	defer stmt.Close()

	var seqValue interface{}
	if chunkSeq != nil {
		seqValue = *chunkSeq
	}

	for _, player := range annotated {
		encryptedAccount, err := s.cipher.EncryptDeterministic(player.Account)
		if err != nil {
			return nil, fmt.Errorf("%w: encrypting account number: %v", ErrChunkSaveFailed, err)
		}

		activityJSON, err := s.encryptJSON(player.Activity)
		if err != nil {
			return nil, fmt.Errorf("%w: serializing activity statement: %v", ErrChunkSaveFailed, err)
		}
		preCommitJSON, err := s.encryptJSON(player.PreCommitment)
		if err != nil {
			return nil, fmt.Errorf("%w: serializing pre-commitment: %v", ErrChunkSaveFailed, err)
		}
		cashlessJSON, err := s.encryptJSON(player.Cashless)
		if err != nil {
			return nil, fmt.Errorf("%w: serializing cashless statement: %v", ErrChunkSaveFailed, err)
		}

		if _, err := stmt.Exec(batchID, encryptedAccount, activityJSON, preCommitJSON, cashlessJSON, seqValue); err != nil {
			return nil, fmt.Errorf("%w: inserting account %s: %s", ErrChunkSaveFailed, player.Account, truncateDetail(err))
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing chunk: %s", ErrChunkSaveFailed, truncateDetail(err))
	}

	// Member identity rows are a convenience for the operator scripts, not
	// part of the chunk contract. Failure here never aborts the chunk.
	s.saveMembersBestEffort(annotated)

	logger.L.Info("Chunk saved", "batchID", batchID, "savedCount", len(annotated))
	return &ChunkResult{SavedCount: len(annotated)}, nil
}

// FinalizeBatch counts the rows actually stored for the batch and overwrites
// the advisory estimate with that authoritative total. Safe to re-run: it
// recomputes and re-stores the same count.
func (s *batchServiceImpl) FinalizeBatch(batchID string, dateRange *models.StatementPeriod) (*FinalizeResult, error) {
	if _, err := s.GetBatch(batchID); err != nil {
		return nil, err
	}

	var total int
	if err := database.DB.QueryRow(`SELECT COUNT(*) FROM statement_players WHERE batch_id = ?`, batchID).Scan(&total); err != nil {
		return nil, fmt.Errorf("error counting batch players: %w", err)
	}

	var startDate, endDate interface{}
	if dateRange != nil {
		startDate, endDate = dateRange.StartDate, dateRange.EndDate
	}

	_, err := database.DB.Exec(
		`UPDATE generation_batches
		 SET total_accounts = ?,
		     status = ?,
		     start_date = COALESCE(?, start_date),
		     end_date = COALESCE(?, end_date),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		total, models.BatchStatusFinalized, startDate, endDate, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("error finalizing batch: %w", err)
	}

	logger.L.Info("Batch finalized", "batchID", batchID, "authoritativeTotal", total)
	return &FinalizeResult{BatchID: batchID, AuthoritativeTotal: total}, nil
}

func (s *batchServiceImpl) GetBatch(batchID string) (*models.GenerationBatch, error) {
	var batch models.GenerationBatch
	var startDate, endDate sql.NullString
	err := database.DB.QueryRow(
		`SELECT id, quarter, year, generation_date, total_accounts, start_date, end_date, status FROM generation_batches WHERE id = ?`,
		batchID,
	).Scan(&batch.ID, &batch.Quarter, &batch.Year, &batch.GenerationDate, &batch.TotalAccounts, &startDate, &endDate, &batch.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying batch %s: %w", batchID, err)
	}
	batch.StartDate = startDate.String
	batch.EndDate = endDate.String
	return &batch, nil
}

func (s *batchServiceImpl) ListBatches() ([]models.GenerationBatch, error) {
	rows, err := database.DB.Query(
		`SELECT id, quarter, year, generation_date, total_accounts, start_date, end_date, status FROM generation_batches ORDER BY generation_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying batches: %w", err)
	}
	defer rows.Close()

	var batches []models.GenerationBatch
	for rows.Next() {
		var batch models.GenerationBatch
		var startDate, endDate sql.NullString
		if err := rows.Scan(&batch.ID, &batch.Quarter, &batch.Year, &batch.GenerationDate, &batch.TotalAccounts, &startDate, &endDate, &batch.Status); err != nil {
			return nil, fmt.Errorf("error scanning batch row: %w", err)
		}
		batch.StartDate = startDate.String
		batch.EndDate = endDate.String
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over batch rows: %w", err)
	}
	return batches, nil
}

// GetBatchPlayers returns a batch's persisted annotated records, decrypted
// for the rendering and export collaborators.
func (s *batchServiceImpl) GetBatchPlayers(batchID string) ([]models.BatchPlayer, error) {
	if _, err := s.GetBatch(batchID); err != nil {
		return nil, err
	}

	rows, err := database.DB.Query(
		`SELECT id, batch_id, account_number, activity_statement, pre_commitment, cashless_statement FROM statement_players WHERE batch_id = ? ORDER BY id ASC`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying batch players: %w", err)
	}
	defer rows.Close()

	var players []models.BatchPlayer
	for rows.Next() {
		var record models.BatchPlayer
		var account string
		var activityJSON, preCommitJSON, cashlessJSON sql.NullString
		if err := rows.Scan(&record.ID, &record.BatchID, &account, &activityJSON, &preCommitJSON, &cashlessJSON); err != nil {
			return nil, fmt.Errorf("error scanning batch player row: %w", err)
		}

		record.Account = s.cipher.Decrypt(account)
		record.Player.Account = record.Account
		if err := s.decryptJSON(activityJSON, &record.Player.Activity); err != nil {
			return nil, fmt.Errorf("error decoding activity statement for %s: %w", record.Account, err)
		}
		if err := s.decryptJSON(preCommitJSON, &record.Player.PreCommitment); err != nil {
			return nil, fmt.Errorf("error decoding pre-commitment for %s: %w", record.Account, err)
		}
		if err := s.decryptJSON(cashlessJSON, &record.Player.Cashless); err != nil {
			return nil, fmt.Errorf("error decoding cashless statement for %s: %w", record.Account, err)
		}
		players = append(players, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over batch player rows: %w", err)
	}
	return players, nil
}

// resolveMetadata finds the shared metadata for a batch: the in-process cache
// first, then the persisted copy (repopulating the cache), then metadata
// supplied inline on the chunk call itself, kept for older callers that
// resend it every time. The persisted copy is the source of truth; the cache
// is only a fast path and may have been swept at any moment.
func (s *batchServiceImpl) resolveMetadata(batchID string, inline *models.BatchMetadata) (*models.BatchMetadata, error) {
	if cached, found := s.metadataCache.Get(batchID); found {
		logger.L.Debug("Metadata cache hit", "batchID", batchID)
		return cached.(*models.BatchMetadata), nil
	}

	var stored string
	err := database.DB.QueryRow(`SELECT metadata FROM batch_metadata WHERE batch_id = ?`, batchID).Scan(&stored)
	if err == nil {
		var metadata models.BatchMetadata
		if jsonErr := json.Unmarshal([]byte(s.cipher.Decrypt(stored)), &metadata); jsonErr != nil {
			return nil, fmt.Errorf("%w: persisted metadata for batch %s is unreadable: %v", ErrMissingBatchMetadata, batchID, jsonErr)
		}
		s.metadataCache.Set(batchID, &metadata, s.cacheTTL)
		logger.L.Debug("Metadata loaded from storage", "batchID", batchID)
		return &metadata, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("error querying batch metadata: %w", err)
	}

	if inline != nil && inline.QuarterlyData != nil {
		encrypted, marshalErr := s.marshalMetadata(inline)
		if marshalErr != nil {
			return nil, marshalErr
		}
		if _, execErr := database.DB.Exec(`INSERT OR REPLACE INTO batch_metadata (batch_id, metadata) VALUES (?, ?)`, batchID, encrypted); execErr != nil {
			logger.L.Warn("Failed to persist inline chunk metadata", "batchID", batchID, "error", execErr)
		}
		s.metadataCache.Set(batchID, inline, s.cacheTTL)
		return inline, nil
	}

	return nil, fmt.Errorf("%w: batch %s", ErrMissingBatchMetadata, batchID)
}

func (s *batchServiceImpl) saveMembersBestEffort(annotated []models.AnnotatedStatementPlayer) {
	for _, player := range annotated {
		encryptedAccount, err := s.cipher.EncryptDeterministic(player.Account)
		if err != nil {
			logger.L.Warn("Skipping member identity save", "account", player.Account, "error", err)
			continue
		}
		_, err = database.DB.Exec(
			`INSERT INTO members (account_number, first_name, last_name, email) VALUES (?, ?, ?, ?)
			 ON CONFLICT(account_number) DO UPDATE SET
			   first_name = excluded.first_name,
			   last_name = excluded.last_name,
			   email = excluded.email,
			   updated_at = CURRENT_TIMESTAMP`,
			encryptedAccount, player.Activity.FirstName, player.Activity.LastName, player.Activity.Email,
		)
		if err != nil {
			logger.L.Warn("Failed to save member identity", "account", player.Account, "error", err)
		}
	}
}

func (s *batchServiceImpl) marshalMetadata(metadata *models.BatchMetadata) (string, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("error marshaling batch metadata: %w", err)
	}
	encrypted, err := s.cipher.Encrypt(string(raw))
	if err != nil {
		return "", fmt.Errorf("error encrypting batch metadata: %w", err)
	}
	return encrypted, nil
}

// encryptJSON marshals and encrypts one per-account payload. Nil payloads
// become NULL columns, preserving the presence/absence contract at rest.
func (s *batchServiceImpl) encryptJSON(payload interface{}) (interface{}, error) {
	switch v := payload.(type) {
	case *models.ActivityStatementRow:
		if v == nil {
			return nil, nil
		}
	case *models.PreCommitmentPlayer:
		if v == nil {
			return nil, nil
		}
	case *models.PlayerData:
		if v == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	encrypted, err := s.cipher.Encrypt(string(raw))
	if err != nil {
		return nil, err
	}
	return encrypted, nil
}

// decryptJSON fills target (a **T) from a nullable encrypted column, leaving
// it nil when the column is NULL.
func (s *batchServiceImpl) decryptJSON(column sql.NullString, target interface{}) error {
	if !column.Valid || column.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.cipher.Decrypt(column.String)), target)
}

func truncateDetail(err error) string {
	detail := err.Error()
	if len(detail) > maxErrorDetail {
		return detail[:maxErrorDetail] + "... (truncated)"
	}
	return detail
}
