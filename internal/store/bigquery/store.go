// Package bigquery implements the durable transaction store on BigQuery.
package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// DefaultListLimit caps ListByUser when the caller passes no limit.
const DefaultListLimit = 100

const selectColumns = `
	user_id,
	transaction_id,
	ingest_ts,
	amount,
	transaction_date,
	merchant,
	category,
	tx_type,
	currency,
	description,
	source,
	raw_text,
	status,
	created_ts,
	updated_ts`

// Config locates the transactions table and declares its capabilities.
type Config struct {
	ProjectID string
	DatasetID string
	TableID   string

	// MerchantDateLookup declares that the table is clustered by
	// (merchant, transaction_date), enabling the targeted duplicate-lookup
	// query. When false the store falls back to a full scan filtered
	// client-side. The flag is explicit configuration so the chosen code
	// path is deterministic and testable.
	MerchantDateLookup bool
}

// Store is the BigQuery-backed transaction store. It holds a shared injected
// client; it never constructs its own.
type Store struct {
	client *bigquery.Client
	cfg    Config
	log    zerolog.Logger
}

// NewStore wraps an injected BigQuery client.
func NewStore(client *bigquery.Client, cfg Config, log zerolog.Logger) *Store {
	if cfg.TableID == "" {
		cfg.TableID = "transactions"
	}
	return &Store{client: client, cfg: cfg, log: log}
}

// Put streams a new record into the transactions table. Uniqueness holds
// only on (user_id, transaction_id); business-level duplicates are the
// caller's concern.
func (s *Store) Put(ctx context.Context, tx *domain.Transaction) error {
	row, err := rowFromTransaction(tx)
	if err != nil {
		return &domain.StorageError{Op: "put", Err: err}
	}

	table := s.client.DatasetInProject(s.cfg.ProjectID, s.cfg.DatasetID).Table(s.cfg.TableID)
	if err := table.Inserter().Put(ctx, row); err != nil {
		return &domain.StorageError{Op: "put", Err: err}
	}

	return nil
}

// Get performs a point lookup by the storage key. Returns domain.ErrNotFound
// when no record exists.
func (s *Store) Get(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id AND transaction_id = @transaction_id
		LIMIT 1
	`, selectColumns, s.tableRef()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	rows, err := s.readRows(ctx, q, "get")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}

	return rows[0].toDomain(), nil
}

// ListByUser returns the user's records newest-first by ingest timestamp,
// capped at limit (default 100).
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	q := s.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY ingest_ts DESC
		LIMIT @limit
	`, selectColumns, s.tableRef()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "limit", Value: int64(limit)},
	}

	rows, err := s.readRows(ctx, q, "list")
	if err != nil {
		return nil, err
	}

	return toDomainSlice(rows), nil
}

// FindByMerchantAndDate is the lookup driving duplicate detection. With
// MerchantDateLookup set it issues a targeted query the clustering can
// serve; otherwise it scans the table and filters client-side. Both paths
// return identical results.
func (s *Store) FindByMerchantAndDate(ctx context.Context, merchant, date string) ([]*domain.Transaction, error) {
	parsedDate, err := civil.ParseDate(date)
	if err != nil {
		return nil, &domain.StorageError{Op: "find_by_merchant_date", Err: err}
	}

	if s.cfg.MerchantDateLookup {
		q := s.client.Query(fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE merchant = @merchant AND transaction_date = @transaction_date
		`, selectColumns, s.tableRef()))
		q.Parameters = []bigquery.QueryParameter{
			{Name: "merchant", Value: merchant},
			{Name: "transaction_date", Value: parsedDate},
		}

		rows, err := s.readRows(ctx, q, "find_by_merchant_date")
		if err != nil {
			return nil, err
		}
		return toDomainSlice(rows), nil
	}

	s.log.Warn().
		Str("merchant", merchant).
		Str("date", date).
		Msg("merchant+date lookup not configured, falling back to full scan")

	q := s.client.Query(fmt.Sprintf(`SELECT %s FROM %s`, selectColumns, s.tableRef()))
	rows, err := s.readRows(ctx, q, "find_by_merchant_date_scan")
	if err != nil {
		return nil, err
	}

	var matched []*TransactionRow
	for _, r := range rows {
		if r.Merchant == merchant && r.TransactionDate == parsedDate {
			matched = append(matched, r)
		}
	}

	return toDomainSlice(matched), nil
}

// TransactionUpdate carries the mutable fields of an update request. Nil
// pointers mean "leave unchanged"; fields outside this struct cannot be
// touched after creation.
type TransactionUpdate struct {
	Amount      *float64
	Date        *string
	Merchant    *string
	Category    *string
	Type        *string
	Description *string
	Status      *string
}

// Update applies the allow-listed fields, always refreshing updated_ts, and
// returns the updated record. A request with no field set is rejected.
func (s *Store) Update(ctx context.Context, userID, transactionID string, upd TransactionUpdate) (*domain.Transaction, error) {
	var sets []string
	var params []bigquery.QueryParameter

	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = @set_%s", column, column))
		params = append(params, bigquery.QueryParameter{Name: "set_" + column, Value: value})
	}

	if upd.Amount != nil {
		amount := new(big.Rat)
		amount.SetFloat64(*upd.Amount)
		addSet("amount", amount)
	}
	if upd.Date != nil {
		parsed, err := civil.ParseDate(*upd.Date)
		if err != nil {
			return nil, domain.NewInvalidField("date", "unparseable date %q", *upd.Date)
		}
		addSet("transaction_date", parsed)
	}
	if upd.Merchant != nil {
		addSet("merchant", *upd.Merchant)
	}
	if upd.Category != nil {
		addSet("category", *upd.Category)
	}
	if upd.Type != nil {
		addSet("tx_type", *upd.Type)
	}
	if upd.Description != nil {
		addSet("description", *upd.Description)
	}
	if upd.Status != nil {
		addSet("status", *upd.Status)
	}

	if len(sets) == 0 {
		return nil, domain.NewInvalidField("fields", "no updatable field provided")
	}

	sets = append(sets, "updated_ts = @updated_ts")
	params = append(params,
		bigquery.QueryParameter{Name: "updated_ts", Value: time.Now().UTC()},
		bigquery.QueryParameter{Name: "user_id", Value: userID},
		bigquery.QueryParameter{Name: "transaction_id", Value: transactionID},
	)

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE user_id = @user_id AND transaction_id = @transaction_id
	`, s.tableRef(), strings.Join(sets, ", ")))
	q.Parameters = params

	if err := s.runDML(ctx, q, "update"); err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, transactionID)
}

// Delete removes a record by its storage key. It exists for administrative
// use; the ingestion pipeline never deletes.
func (s *Store) Delete(ctx context.Context, userID, transactionID string) error {
	q := s.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE user_id = @user_id AND transaction_id = @transaction_id
	`, s.tableRef()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "transaction_id", Value: transactionID},
	}

	return s.runDML(ctx, q, "delete")
}

func (s *Store) tableRef() string {
	return fmt.Sprintf("`%s.%s.%s`", s.cfg.ProjectID, s.cfg.DatasetID, s.cfg.TableID)
}

func (s *Store) readRows(ctx context.Context, q *bigquery.Query, op string) ([]*TransactionRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: op, Err: err}
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &domain.StorageError{Op: op, Err: err}
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

func (s *Store) runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return &domain.StorageError{Op: op, Err: fmt.Errorf("running query: %w", err)}
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return &domain.StorageError{Op: op, Err: fmt.Errorf("waiting for job: %w", err)}
	}
	if err := status.Err(); err != nil {
		return &domain.StorageError{Op: op, Err: fmt.Errorf("job error: %w", err)}
	}
	return nil
}

func toDomainSlice(rows []*TransactionRow) []*domain.Transaction {
	out := make([]*domain.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
