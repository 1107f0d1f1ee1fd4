package notionsync

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/expense-ledger/internal/domain"
	"github.com/dvloznov/expense-ledger/internal/logger"
)

type mockSource struct {
	transactions []*domain.Transaction
	err          error
}

func (m *mockSource) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.transactions, nil
}

type mockNotion struct {
	pages       []notionapi.Page
	queryErr    error
	createErr   error
	createdIDs  []string
	archivedIDs []string
	queryCalls  int
}

func (m *mockNotion) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if title, ok := properties["Transaction ID"].(notionapi.TitleProperty); ok && len(title.Title) > 0 {
		m.createdIDs = append(m.createdIDs, title.Title[0].Text.Content)
	}
	return &notionapi.Page{}, nil
}

func (m *mockNotion) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	m.queryCalls++
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return &notionapi.DatabaseQueryResponse{Results: m.pages, HasMore: false}, nil
}

func (m *mockNotion) DeletePage(ctx context.Context, pageID string) error {
	m.archivedIDs = append(m.archivedIDs, pageID)
	return nil
}

func notionPageFor(pageID, txID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			"Transaction ID": &notionapi.TitleProperty{
				Title: []notionapi.RichText{
					{PlainText: txID},
				},
			},
		},
	}
}

func sampleTransaction(id string) *domain.Transaction {
	return &domain.Transaction{
		TransactionID: id,
		UserID:        "user-1",
		Amount:        12.50,
		Date:          "2026-08-01",
		Merchant:      "Blue Bottle",
		Category:      "Food & Dining",
		Type:          domain.TypeExpense,
		Currency:      "USD",
		Status:        domain.StatusConfirmed,
	}
}

func TestSyncCreatesMissingPages(t *testing.T) {
	source := &mockSource{transactions: []*domain.Transaction{
		sampleTransaction("tx-1"),
		sampleTransaction("tx-2"),
	}}
	notion := &mockNotion{pages: []notionapi.Page{notionPageFor("page-1", "tx-1")}}

	syncer := NewSyncer(source, notion, "db-1", false, logger.Nop())
	result, err := syncer.Sync(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	if result.Created != 1 || result.Skipped != 1 || result.Deleted != 0 {
		t.Errorf("got created=%d skipped=%d deleted=%d, want 1/1/0",
			result.Created, result.Skipped, result.Deleted)
	}
	if len(notion.createdIDs) != 1 || notion.createdIDs[0] != "tx-2" {
		t.Errorf("created pages %v, want [tx-2]", notion.createdIDs)
	}
}

func TestSyncArchivesStalePages(t *testing.T) {
	source := &mockSource{transactions: []*domain.Transaction{sampleTransaction("tx-1")}}
	notion := &mockNotion{pages: []notionapi.Page{
		notionPageFor("page-1", "tx-1"),
		notionPageFor("page-2", "tx-gone"),
	}}

	syncer := NewSyncer(source, notion, "db-1", false, logger.Nop())
	result, err := syncer.Sync(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	if result.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", result.Deleted)
	}
	if len(notion.archivedIDs) != 1 || notion.archivedIDs[0] != "page-2" {
		t.Errorf("archived pages %v, want [page-2]", notion.archivedIDs)
	}
}

func TestSyncDryRunTouchesNothing(t *testing.T) {
	source := &mockSource{transactions: []*domain.Transaction{sampleTransaction("tx-new")}}
	notion := &mockNotion{pages: []notionapi.Page{notionPageFor("page-1", "tx-stale")}}

	syncer := NewSyncer(source, notion, "db-1", true, logger.Nop())
	result, err := syncer.Sync(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	if result.Created != 1 || result.Deleted != 1 {
		t.Errorf("got created=%d deleted=%d, want 1/1", result.Created, result.Deleted)
	}
	if len(notion.createdIDs) != 0 || len(notion.archivedIDs) != 0 {
		t.Errorf("dry run wrote to Notion: created=%v archived=%v",
			notion.createdIDs, notion.archivedIDs)
	}
}

func TestSyncPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("store unavailable")
	source := &mockSource{err: wantErr}
	notion := &mockNotion{}

	syncer := NewSyncer(source, notion, "db-1", false, logger.Nop())
	if _, err := syncer.Sync(context.Background(), "user-1"); !errors.Is(err, wantErr) {
		t.Errorf("Sync error = %v, want wrapped %v", err, wantErr)
	}
	if notion.queryCalls != 0 {
		t.Errorf("Notion queried %d times after source failure, want 0", notion.queryCalls)
	}
}
