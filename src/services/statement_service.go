package services

import (
	"fmt"
	"io"
	"time"

	"github.com/username/playerstatements/backend/src/logger"
	"github.com/username/playerstatements/backend/src/models"
	"github.com/username/playerstatements/backend/src/parsers"
	"github.com/username/playerstatements/backend/src/processors"
)

type statementServiceImpl struct {
	aggregator processors.QuarterlyProcessor
	annotator  processors.AnnotationProcessor
}

func NewStatementService(aggregator processors.QuarterlyProcessor, annotator processors.AnnotationProcessor) StatementService {
	return &statementServiceImpl{
		aggregator: aggregator,
		annotator:  annotator,
	}
}

// ProcessUpload reads one spreadsheet and transforms its rows for the
// requested source type. The transformed rows go back to the caller, who
// assembles the full three-dataset annotate/ingest request client-side.
func (s *statementServiceImpl) ProcessUpload(file io.Reader, filename, source string) (*UploadResult, error) {
	startTime := time.Now()
	logger.L.Info("ProcessUpload START", "filename", filename, "source", source)

	rows, err := parsers.ReadRows(file, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	result := &UploadResult{Source: source}
	switch source {
	case SourceActivity:
		result.Activity = parsers.TransformActivityRows(rows)
		result.RowCount = len(result.Activity)
	case SourcePreCommitment:
		result.PreCommitment = parsers.TransformPreCommitmentRows(rows)
		result.RowCount = len(result.PreCommitment)
	case SourceCashless:
		result.Cashless = parsers.TransformCashlessRows(rows, filename)
		result.RowCount = len(result.Cashless)
		result.StatementMonth = parsers.MonthFromFilename(filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	logger.L.Info("ProcessUpload END", "filename", filename, "source", source, "rowCount", result.RowCount, "duration", time.Since(startTime))
	return result, nil
}

// Annotate validates the three input collections, aggregates the cashless
// months into a quarter and runs the matcher. Each required collection gets
// its own validation error so the operator knows which file is missing.
func (s *statementServiceImpl) Annotate(req AnnotateRequest) (*AnnotateResult, error) {
	if len(req.Activity) == 0 {
		return nil, ErrMissingActivityRows
	}
	if len(req.PreCommitmentPlayers) == 0 {
		return nil, ErrMissingPreCommitmentPlayers
	}
	if len(req.CashlessMonths) == 0 {
		return nil, ErrMissingCashlessData
	}

	quarterly, err := s.aggregator.Aggregate(req.CashlessMonths, req.Period)
	if err != nil {
		return nil, err
	}

	players := s.annotator.Annotate(req.Activity, req.PreCommitmentPlayers, quarterly)
	logger.L.Info("Annotation complete", "activityRows", len(req.Activity), "annotatedPlayers", len(players), "quarter", quarterly.Quarter, "year", quarterly.Year)

	return &AnnotateResult{Players: players, Quarterly: quarterly}, nil
}

// AnnotateAccount runs a full annotation then extracts one account. An
// account absent from the annotated set is a not-found error.
func (s *statementServiceImpl) AnnotateAccount(req AnnotateRequest, account string) (*models.AnnotatedStatementPlayer, error) {
	result, err := s.Annotate(req)
	if err != nil {
		return nil, err
	}
	return s.annotator.FindAccount(result.Players, account)
}
