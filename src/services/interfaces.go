package services

import (
	"errors"
	"io"

	"github.com/username/playerstatements/backend/src/models"
)

var (
	ErrParsingFailed = errors.New("spreadsheet parsing failed")
	ErrUnknownSource = errors.New("unknown spreadsheet source type")

	// Structural validation failures, one per required input collection so
	// callers can tell which file they forgot to upload.
	ErrMissingActivityRows         = errors.New("missing or empty activity statement rows")
	ErrMissingPreCommitmentPlayers = errors.New("missing or empty pre-commitment players")
	ErrMissingCashlessData         = errors.New("missing or empty cashless player data")

	ErrBatchNotFound        = errors.New("generation batch not found")
	ErrMissingBatchMetadata = errors.New("missing quarterlyData/preCommitmentPlayers for batch")
	ErrChunkSaveFailed      = errors.New("chunk save failed")
)

// Spreadsheet source types accepted by the upload endpoint.
const (
	SourceActivity      = "activity"
	SourcePreCommitment = "precommitment"
	SourceCashless      = "cashless"
)

// UploadResult carries the typed rows produced from one uploaded spreadsheet.
// Exactly one of the three row slices is populated, matching Source.
type UploadResult struct {
	Source         string                       `json:"source"`
	RowCount       int                          `json:"rowCount"`
	StatementMonth int                          `json:"statementMonth,omitempty"`
	Activity       []models.ActivityStatementRow `json:"activity,omitempty"`
	PreCommitment  []models.PreCommitmentPlayer  `json:"preCommitment,omitempty"`
	Cashless       []models.PlayerData           `json:"cashless,omitempty"`
}

// AnnotateRequest is the full three-dataset input for a one-shot aggregation
// and matching run.
type AnnotateRequest struct {
	Activity             []models.ActivityStatementRow `json:"activity"`
	PreCommitmentPlayers []models.PreCommitmentPlayer  `json:"preCommitmentPlayers"`
	CashlessMonths       []models.MonthlyDataset       `json:"cashlessMonths"`
	Period               *models.StatementPeriod       `json:"period,omitempty"`
}

// AnnotateResult pairs the annotated players with the quarterly dataset they
// were matched against; the rendering collaborator consumes both.
type AnnotateResult struct {
	Players   []models.AnnotatedStatementPlayer `json:"players"`
	Quarterly *models.QuarterlyData             `json:"quarterly"`
}

// ChunkResult reports one saveChunk call. AlreadySaved is true when the
// caller supplied a chunk sequence number that was ingested before; nothing
// is inserted in that case.
type ChunkResult struct {
	SavedCount   int  `json:"savedCount"`
	AlreadySaved bool `json:"alreadySaved,omitempty"`
}

// FinalizeResult reports the authoritative account total computed from what
// was actually persisted.
type FinalizeResult struct {
	BatchID            string `json:"batchId"`
	AuthoritativeTotal int    `json:"authoritativeTotal"`
}

// IsEmailUpdateResult summarizes a contact-preference CSV run against the
// no-play registry.
type IsEmailUpdateResult struct {
	CSVEmailAccounts int  `json:"csvEmailAccounts"`
	Matched          int  `json:"matched"`
	Updated          int  `json:"updated"`
	Unmatched        int  `json:"unmatched"`
	DryRun           bool `json:"dryRun"`
}

// StatementService is the upload/annotation surface of the portal.
type StatementService interface {
	ProcessUpload(file io.Reader, filename, source string) (*UploadResult, error)
	Annotate(req AnnotateRequest) (*AnnotateResult, error)
	AnnotateAccount(req AnnotateRequest, account string) (*models.AnnotatedStatementPlayer, error)
}

// BatchService is the chunked batch-ingest protocol: init, repeated chunk
// saves, finalize, plus read-back for the rendering and export collaborators.
type BatchService interface {
	InitBatch(quarter, year, estimatedTotal int, metadata *models.BatchMetadata) (string, error)
	SaveChunk(batchID string, activity []models.ActivityStatementRow, metadata *models.BatchMetadata, chunkSeq *int) (*ChunkResult, error)
	FinalizeBatch(batchID string, dateRange *models.StatementPeriod) (*FinalizeResult, error)
	GetBatch(batchID string) (*models.GenerationBatch, error)
	ListBatches() ([]models.GenerationBatch, error)
	GetBatchPlayers(batchID string) ([]models.BatchPlayer, error)
}

// NoPlayService maintains the no-play member registry.
type NoPlayService interface {
	ListNoPlayBatches() ([]models.NoPlayBatch, error)
	GetNoPlayAccounts(batchID string) ([]models.NoPlayPlayer, error)
	UpdateIsEmailFromCSV(file io.Reader, dryRun bool) (*IsEmailUpdateResult, error)
}
