// Package resync runs tenant-wide classification and posting batches.
//
// Every batch processes transactions one by one. A failing transaction is
// logged, recorded in the Result and skipped; the batch carries on with the
// rest. Only a missing tenant or a failed initial listing aborts a batch.
package resync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/classifier"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/posting"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

// Operation names a batch.
type Operation string

const (
	OpClassifyUnclassified Operation = "classify_unclassified"
	OpReclassifyAll        Operation = "reclassify_all"
	OpGenerateEntries      Operation = "generate_entries"
)

// DefaultControlAccount is the code of the bank account every generated entry
// posts against when none is configured.
const DefaultControlAccount = "1100"

// Failure records one transaction the batch could not process.
type Failure struct {
	TransactionID int64
	Kind          model.ErrorKind
	Err           error
}

// Result summarises a batch run.
type Result struct {
	RunID     string
	Operation Operation
	Total     int
	Succeeded int
	// Unmatched counts transactions no active rule matched. They are not failures.
	Unmatched int
	Failed    int
	Failures  []Failure
}

// RegenerateResult holds both halves of RegenerateAll.
type RegenerateResult struct {
	Reclassify Result
	Generate   Result
}

// Config configures a Driver.
type Config struct {
	// ControlAccountCode is resolved per tenant for every generated entry.
	ControlAccountCode string
	Logger             *slog.Logger
}

// Driver runs the batch operations over one store.
type Driver struct {
	store    store.Store
	resolver *classifier.Resolver
	engine   *posting.Engine
	control  string
	logger   *slog.Logger
	now      func() time.Time
}

// NewDriver creates a Driver over st.
func NewDriver(st store.Store, cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	control := cfg.ControlAccountCode
	if control == "" {
		control = DefaultControlAccount
	}
	return &Driver{
		store:    st,
		resolver: classifier.NewResolver(st),
		engine:   posting.NewEngine(st, logger),
		control:  control,
		logger:   logger,
		now:      time.Now,
	}
}

// ClassifyAllUnclassified classifies every transaction of the tenant that has
// no account code yet.
func (d *Driver) ClassifyAllUnclassified(ctx context.Context, tenantID int64, actor string) (Result, error) {
	return d.classify(ctx, OpClassifyUnclassified, tenantID, actor, true)
}

// ReclassifyAll classifies every transaction of the tenant again, overwriting
// earlier codes. A transaction no rule matches keeps its previous code.
func (d *Driver) ReclassifyAll(ctx context.Context, tenantID int64, actor string) (Result, error) {
	return d.classify(ctx, OpReclassifyAll, tenantID, actor, false)
}

func (d *Driver) classify(ctx context.Context, op Operation, tenantID int64, actor string, unclassifiedOnly bool) (Result, error) {
	res, logger := d.begin(op, tenantID)

	if _, err := d.store.GetTenant(ctx, tenantID); err != nil {
		return res, err
	}

	selector, err := classifier.LoadSelector(ctx, d.store, tenantID, logger)
	if err != nil {
		return res, err
	}

	txns, err := d.store.ListTransactions(ctx, store.TransactionFilter{
		TenantID:         tenantID,
		UnclassifiedOnly: unclassifiedOnly,
	})
	if err != nil {
		return res, fmt.Errorf("failed to list transactions: %w", err)
	}
	res.Total = len(txns)
	logger.Info("Classifying transactions", "count", len(txns), "rules", selector.Len())

	for _, txn := range txns {
		code, ok := selector.Classify(txn.Details)
		if !ok {
			res.Unmatched++
			logger.Debug("No rule matched", "transaction_id", txn.ID, "details", txn.Details)
			continue
		}

		if _, err := d.resolver.Resolve(ctx, tenantID, code); err != nil {
			res.fail(logger, txn.ID, err)
			continue
		}

		if err := d.store.UpdateClassification(ctx, txn.ID, code, actor, d.now()); err != nil {
			res.fail(logger, txn.ID, model.Persistence(err))
			continue
		}
		res.Succeeded++
	}

	d.finish(logger, res)
	return res, nil
}

// GenerateJournalEntriesForClassified posts every classified transaction of the
// tenant that has no journal lines yet.
func (d *Driver) GenerateJournalEntriesForClassified(ctx context.Context, tenantID int64, actor string) (Result, error) {
	res, logger := d.begin(OpGenerateEntries, tenantID)

	if _, err := d.store.GetTenant(ctx, tenantID); err != nil {
		return res, err
	}

	txns, err := d.store.ListClassifiedWithoutLines(ctx, tenantID)
	if err != nil {
		return res, fmt.Errorf("failed to list classified transactions: %w", err)
	}
	res.Total = len(txns)
	logger.Info("Generating journal entries", "count", len(txns), "control_account", d.control)

	for i := range txns {
		txn := &txns[i]
		if err := d.post(ctx, txn, actor); err != nil {
			res.fail(logger, txn.ID, err)
			continue
		}
		res.Succeeded++
	}

	d.finish(logger, res)
	return res, nil
}

func (d *Driver) post(ctx context.Context, txn *model.BankTransaction, actor string) error {
	if txn.AccountCode == nil {
		return model.Validationf("transaction %d is not classified", txn.ID)
	}
	target, err := d.resolver.Resolve(ctx, txn.TenantID, *txn.AccountCode)
	if err != nil {
		return err
	}
	control, err := d.resolver.Resolve(ctx, txn.TenantID, d.control)
	if err != nil {
		return fmt.Errorf("control account: %w", err)
	}
	_, err = d.engine.Post(ctx, txn, target, control, actor)
	return err
}

// RegenerateAll reclassifies every transaction and then posts the ones still
// lacking journal lines.
func (d *Driver) RegenerateAll(ctx context.Context, tenantID int64, actor string) (RegenerateResult, error) {
	var out RegenerateResult

	reclassify, err := d.ReclassifyAll(ctx, tenantID, actor)
	out.Reclassify = reclassify
	if err != nil {
		return out, err
	}

	generate, err := d.GenerateJournalEntriesForClassified(ctx, tenantID, actor)
	out.Generate = generate
	return out, err
}

func (d *Driver) begin(op Operation, tenantID int64) (Result, *slog.Logger) {
	res := Result{RunID: uuid.NewString(), Operation: op}
	logger := d.logger.With("run_id", res.RunID, "operation", string(op), "tenant_id", tenantID)
	return res, logger
}

func (d *Driver) finish(logger *slog.Logger, res Result) {
	logger.Info("Batch finished",
		"total", res.Total,
		"succeeded", res.Succeeded,
		"unmatched", res.Unmatched,
		"failed", res.Failed,
	)
}

func (r *Result) fail(logger *slog.Logger, txnID int64, err error) {
	kind := model.KindOf(err)
	r.Failed++
	r.Failures = append(r.Failures, Failure{TransactionID: txnID, Kind: kind, Err: err})

	level := slog.LevelWarn
	if kind == model.KindPersistence || kind == model.KindUnknown {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "Transaction failed",
		"transaction_id", txnID,
		"kind", string(kind),
		"error", err,
	)
}
