package notionsync

import (
	"context"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// NotionService is the slice of the Notion API the syncer drives. Tests swap
// in a fake.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePage(ctx context.Context, pageID string) error
}

// TransactionSource lists the transactions to mirror into Notion.
type TransactionSource interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error)
}
