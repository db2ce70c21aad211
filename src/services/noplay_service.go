package services

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/username/playerstatements/backend/src/database"
	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/security"
	"github.com/username/playerstatements/backend/src/utils"
)

type noPlayServiceImpl struct {
	cipher *security.FieldCipher
}

func NewNoPlayService(cipher *security.FieldCipher) NoPlayService {
	return &noPlayServiceImpl{cipher: cipher}
}

func (s *noPlayServiceImpl) ListNoPlayBatches() ([]models.NoPlayBatch, error) {
	rows, err := database.DB.Query(
		`SELECT id, statement_period, statement_date, generation_date, total_players FROM no_play_batches ORDER BY generation_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying no-play batches: %w", err)
	}
	defer rows.Close()

	var batches []models.NoPlayBatch
	for rows.Next() {
		var batch models.NoPlayBatch
		var period, date sql.NullString
		if err := rows.Scan(&batch.ID, &period, &date, &batch.GenerationDate, &batch.TotalPlayers); err != nil {
			return nil, fmt.Errorf("error scanning no-play batch row: %w", err)
		}
		batch.StatementPeriod = period.String
		batch.StatementDate = date.String
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over no-play batch rows: %w", err)
	}
	return batches, nil
}

func (s *noPlayServiceImpl) GetNoPlayAccounts(batchID string) ([]models.NoPlayPlayer, error) {
	rows, err := database.DB.Query(
		`SELECT id, batch_id, account_number, player_data, no_play_status, is_email FROM no_play_players WHERE batch_id = ? ORDER BY account_number`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying no-play accounts for batch %s: %w", batchID, err)
	}
	defer rows.Close()

	var players []models.NoPlayPlayer
	for rows.Next() {
		var player models.NoPlayPlayer
		var account string
		var playerData, status sql.NullString
		if err := rows.Scan(&player.ID, &player.BatchID, &account, &playerData, &status, &player.IsEmail); err != nil {
			return nil, fmt.Errorf("error scanning no-play account row: %w", err)
		}
		player.Account = s.cipher.Decrypt(account)
		player.NoPlayStatus = status.String
		if playerData.Valid {
			player.PlayerData = s.cipher.Decrypt(playerData.String)
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over no-play account rows: %w", err)
	}
	return players, nil
}

// UpdateIsEmailFromCSV reads a member-contact CSV ("Account Number",
// "Is Email") and flips is_email on for every no-play player whose normalized
// account matches a TRUE row. Stored account numbers are deterministically
// encrypted, so matching decrypts each stored value rather than encrypting
// the CSV side; databases written before encryption hold plaintext accounts.
func (s *noPlayServiceImpl) UpdateIsEmailFromCSV(file io.Reader, dryRun bool) (*IsEmailUpdateResult, error) {
	emailAccounts, err := s.readEmailAccounts(file)
	if err != nil {
		return nil, err
	}

	result := &IsEmailUpdateResult{CSVEmailAccounts: len(emailAccounts), DryRun: dryRun}
	if len(emailAccounts) == 0 {
		return result, nil
	}

	rows, err := database.DB.Query(`SELECT id, account_number, is_email FROM no_play_players`)
	if err != nil {
		return nil, fmt.Errorf("error querying no-play players: %w", err)
	}
	defer rows.Close()

	type pendingUpdate struct {
		id      int64
		isEmail bool
	}
	var updates []pendingUpdate
	matchedAccounts := make(map[string]bool)

	for rows.Next() {
		var id int64
		var account string
		var isEmail bool
		if err := rows.Scan(&id, &account, &isEmail); err != nil {
			return nil, fmt.Errorf("error scanning no-play player row: %w", err)
		}
		normalized := s.cipher.NormalizeAccount(account)
		if !emailAccounts[normalized] {
			continue
		}
		matchedAccounts[normalized] = true
		result.Matched++
		if !isEmail {
			updates = append(updates, pendingUpdate{id: id, isEmail: true})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over no-play player rows: %w", err)
	}

	result.Unmatched = len(emailAccounts) - len(matchedAccounts)

	if dryRun {
		result.Updated = len(updates)
		logger.L.Info("is_email dry run complete", "csvEmailAccounts", result.CSVEmailAccounts, "matched", result.Matched, "wouldUpdate", result.Updated)
		return result, nil
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`UPDATE no_play_players SET is_email = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("error preparing update statement: %w", err)
	}
	defer stmt.Close()

	for _, update := range updates {
		if _, err := stmt.Exec(update.isEmail, update.id); err != nil {
			return nil, fmt.Errorf("error updating no-play player %d: %w", update.id, err)
		}
		result.Updated++
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing is_email updates: %w", err)
	}

	logger.L.Info("is_email update complete", "csvEmailAccounts", result.CSVEmailAccounts, "matched", result.Matched, "updated", result.Updated, "unmatched", result.Unmatched)
	return result, nil
}

func (s *noPlayServiceImpl) readEmailAccounts(file io.Reader) (map[string]bool, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrParsingFailed, err)
	}

	accountIdx, isEmailIdx := -1, -1
	for i, name := range header {
		switch name {
		case "Account Number":
			accountIdx = i
		case "Is Email":
			isEmailIdx = i
		}
	}
	if accountIdx < 0 || isEmailIdx < 0 {
		return nil, fmt.Errorf("%w: CSV must contain 'Account Number' and 'Is Email' columns", ErrParsingFailed)
	}

	emailAccounts := make(map[string]bool)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV record: %v", ErrParsingFailed, err)
		}
		if accountIdx >= len(record) || isEmailIdx >= len(record) {
			continue
		}
		if !utils.ParseBoolFlag(record[isEmailIdx]) {
			continue
		}
		account := s.cipher.NormalizeAccount(record[accountIdx])
		if account != "" {
			emailAccounts[account] = true
		}
	}
	return emailAccounts, nil
}
