package models

import "time"

// Batch status values for the chunked-ingest lifecycle.
const (
	BatchStatusOpen      = "open"
	BatchStatusFinalized = "finalized"
)

// GenerationBatch is one persisted unit of statement-generation work. It is
// created empty by init, filled by repeated chunk saves and closed by
// finalize, which replaces the advisory TotalAccounts estimate with the count
// of rows actually stored.
type GenerationBatch struct {
	ID             string    `json:"id"`
	Quarter        int       `json:"quarter"`
	Year           int       `json:"year"`
	GenerationDate time.Time `json:"generationDate"`
	TotalAccounts  int       `json:"totalAccounts"`
	StartDate      string    `json:"startDate,omitempty"`
	EndDate        string    `json:"endDate,omitempty"`
	Status         string    `json:"status"`
}

// BatchMetadata is the shared context every chunk of a batch is matched
// against. It is persisted once per batch, never duplicated per chunk.
type BatchMetadata struct {
	QuarterlyData        *QuarterlyData        `json:"quarterlyData"`
	PreCommitmentPlayers []PreCommitmentPlayer `json:"preCommitmentPlayers"`
}

// BatchPlayer is one persisted annotated record inside a batch, as stored in
// statement_players. Account numbers and payloads are encrypted at rest when
// an encryption key is configured.
type BatchPlayer struct {
	ID      int64                    `json:"id"`
	BatchID string                   `json:"batchId"`
	Account string                   `json:"account"`
	Player  AnnotatedStatementPlayer `json:"player"`
}

// NoPlayBatch mirrors a generation batch for members with a no-play
// pre-commitment status; the comms team mails (or emails) these separately.
type NoPlayBatch struct {
	ID              string    `json:"id"`
	StatementPeriod string    `json:"statementPeriod"`
	StatementDate   string    `json:"statementDate"`
	GenerationDate  time.Time `json:"generationDate"`
	TotalPlayers    int       `json:"totalPlayers"`
}

// NoPlayPlayer is one account in a no-play batch. IsEmail records the
// account's contact preference as updated from the member-contact CSV.
type NoPlayPlayer struct {
	ID           int64  `json:"id"`
	BatchID      string `json:"batchId"`
	Account      string `json:"account"`
	NoPlayStatus string `json:"noPlayStatus"`
	IsEmail      bool   `json:"isEmail"`
	PlayerData   string `json:"playerData,omitempty"`
}

// Member is a deduplicated member identity row, written best-effort during
// chunk saves so operator scripts can walk the full member list.
type Member struct {
	ID            int64  `json:"id"`
	AccountNumber string `json:"accountNumber"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email,omitempty"`
}
