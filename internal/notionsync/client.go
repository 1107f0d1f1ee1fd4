package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// Client implements NotionService on the official SDK. The token is the only
// state; one Client can serve any number of databases.
type Client struct {
	api *notionapi.Client
}

// NewNotionClient builds a Client for the given integration token.
func NewNotionClient(token string) *Client {
	return &Client{api: notionapi.NewClient(notionapi.Token(token))}
}

// CreatePage adds a page with the given properties to a database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("notionsync: create page in %s: %w", databaseID, err)
	}
	return page, nil
}

// QueryDatabase runs one query request; paging is the caller's job.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), filter)
	if err != nil {
		return nil, fmt.Errorf("notionsync: query database %s: %w", databaseID, err)
	}
	return resp, nil
}

// DeletePage archives a page. Notion has no hard delete through the API.
func (c *Client) DeletePage(ctx context.Context, pageID string) error {
	_, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Archived: true,
	})
	if err != nil {
		return fmt.Errorf("notionsync: archive page %s: %w", pageID, err)
	}
	return nil
}

var _ NotionService = (*Client)(nil)
