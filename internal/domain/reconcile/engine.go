package reconcile

import (
	"context"
	"log/slog"

	"github.com/FACorreiaa/resto-backoffice/internal/domain/ledger"
	"github.com/FACorreiaa/resto-backoffice/internal/domain/staging"
	"github.com/FACorreiaa/resto-backoffice/pkg/observability"
)

// DefaultBatchSize bounds how many staged rows one batch processes
const DefaultBatchSize = 50

// Progress is reported to the callback after every batch
type Progress struct {
	BatchIndex int
	BatchCount int
	RowsDone   int
	RowsTotal  int
	Inserted   int
	Duplicates int
	Unmatched  int
}

// Summary is the outcome of one reconciliation run
type Summary struct {
	RowsTotal   int
	Inserted    int
	Duplicates  int
	Unmatched   int
	BatchErrors int
}

// Engine reconciles staged import rows into ledger movements
type Engine struct {
	staging   staging.Repository
	ledger    ledger.Repository
	matcher   *Matcher
	logger    *slog.Logger
	batchSize int
	progress  func(Progress)
}

// NewEngine creates a reconciliation engine
func NewEngine(stagingRepo staging.Repository, ledgerRepo ledger.Repository, logger *slog.Logger) *Engine {
	return &Engine{
		staging:   stagingRepo,
		ledger:    ledgerRepo,
		matcher:   NewMatcher(),
		logger:    logger,
		batchSize: DefaultBatchSize,
	}
}

// WithBatchSize overrides the batch size
func (e *Engine) WithBatchSize(size int) *Engine {
	if size > 0 {
		e.batchSize = size
	}
	return e
}

// WithProgress sets a callback invoked after each batch
func (e *Engine) WithProgress(fn func(Progress)) *Engine {
	e.progress = fn
	return e
}

// WithMatchStrategy overrides the account tie-break strategy
func (e *Engine) WithMatchStrategy(s Strategy) *Engine {
	e.matcher.Strategy = s
	return e
}

// Run processes all unreconciled staged rows in fixed-size batches.
// A batch that fails is logged with its index and skipped; the remaining
// batches still run. Cancellation is honored between batches, never mid-batch.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	lines, err := e.staging.ListUnreconciled(ctx)
	if err != nil {
		return nil, err
	}

	accounts, err := e.ledger.ListBankAccounts(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{RowsTotal: len(lines)}
	if len(lines) == 0 {
		return summary, nil
	}

	batchCount := (len(lines) + e.batchSize - 1) / e.batchSize
	rowsDone := 0

	for batchIdx := 0; batchIdx < batchCount; batchIdx++ {
		if err := ctx.Err(); err != nil {
			e.logger.Info("reconciliation cancelled",
				slog.Int("batches_done", batchIdx),
				slog.Int("rows_done", rowsDone),
			)
			return summary, err
		}

		start := batchIdx * e.batchSize
		end := start + e.batchSize
		if end > len(lines) {
			end = len(lines)
		}
		batch := lines[start:end]

		if err := e.processBatch(ctx, batch, accounts, summary); err != nil {
			// Partial-failure tolerant: this batch is lost, the rest proceed
			summary.BatchErrors++
			observability.ReconcileBatchesTotal.WithLabelValues("failed").Inc()
			e.logger.Error("reconciliation batch failed",
				slog.Int("batch", batchIdx),
				slog.Any("error", err),
			)
		} else {
			observability.ReconcileBatchesTotal.WithLabelValues("ok").Inc()
		}
		rowsDone += len(batch)

		if e.progress != nil {
			e.progress(Progress{
				BatchIndex: batchIdx,
				BatchCount: batchCount,
				RowsDone:   rowsDone,
				RowsTotal:  len(lines),
				Inserted:   summary.Inserted,
				Duplicates: summary.Duplicates,
				Unmatched:  summary.Unmatched,
			})
		}
	}

	e.logger.Info("reconciliation finished",
		slog.Int("rows", summary.RowsTotal),
		slog.Int("inserted", summary.Inserted),
		slog.Int("duplicates", summary.Duplicates),
		slog.Int("unmatched", summary.Unmatched),
		slog.Int("batch_errors", summary.BatchErrors),
	)
	return summary, nil
}

// processBatch walks one slice of staged rows through match -> dedupe -> insert
func (e *Engine) processBatch(ctx context.Context, batch []staging.StagedLine, accounts []ledger.BankAccount, summary *Summary) error {
	for i := range batch {
		line := &batch[i]

		account, candidates := e.matcher.Match(line.Account, accounts)
		if account == nil {
			summary.Unmatched++
			observability.ReconcileRowsTotal.WithLabelValues("unmatched").Inc()
			e.logger.Warn("no bank account matches staged row",
				slog.String("line_id", line.ID.String()),
				slog.String("account_token", line.Account),
			)
			continue
		}
		if len(candidates) > 1 {
			ids := make([]string, len(candidates))
			for j, c := range candidates {
				ids[j] = c.ID.String()
			}
			e.logger.Warn("ambiguous account match",
				slog.String("account_token", line.Account),
				slog.String("chosen", account.ID.String()),
				slog.Any("candidates", ids),
			)
		}

		movement := &ledger.Movement{
			AccountID:          account.ID,
			PostingDate:        line.PostingDate,
			ValueDate:          line.ValueDate,
			Description:        line.Description,
			Amount:             line.Amount,
			RunningBalance:     line.RunningBalance,
			DocumentReference:  line.DocumentReference,
			SourceImportLineID: &line.ID,
		}

		exists, err := e.ledger.MovementExists(ctx, movement.Key())
		if err != nil {
			return err
		}
		if exists {
			summary.Duplicates++
			observability.ReconcileRowsTotal.WithLabelValues("duplicate").Inc()
			continue
		}

		if err := e.ledger.InsertMovement(ctx, movement); err != nil {
			return err
		}
		if err := e.staging.MarkReconciled(ctx, line.ID, movement.ID); err != nil {
			return err
		}
		summary.Inserted++
		observability.ReconcileRowsTotal.WithLabelValues("inserted").Inc()
	}
	return nil
}
