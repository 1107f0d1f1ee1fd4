package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/expense-ledger/internal/domain"
)

// TransactionToNotionProperties converts a ledger transaction to Notion page
// properties. The Transaction ID title property is used for deduplication
// between sync runs.
func TransactionToNotionProperties(tx *domain.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		"Transaction ID": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.TransactionID,
					},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount,
		},
	}

	if date, err := time.Parse(domain.DateFormat, tx.Date); err == nil {
		notionDate := notionapi.Date(date)
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &notionDate,
			},
		}
	}

	if tx.Merchant != "" {
		props["Merchant"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Merchant,
					},
				},
			},
		}
	}

	if tx.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Category,
			},
		}
	}

	if tx.Type != "" {
		props["Type"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Type),
			},
		}
	}

	if tx.Currency != "" {
		props["Currency"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Currency,
			},
		}
	}

	if tx.Source != "" {
		props["Source"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Source),
			},
		}
	}

	if tx.Description != "" {
		props["Description"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Description,
					},
				},
			},
		}
	}

	if tx.Status != "" {
		props["Status"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Status,
			},
		}
	}

	return props
}

// extractTransactionID pulls the Transaction ID title out of a Notion page.
// Returns empty string when the page has no usable title.
func extractTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties["Transaction ID"]
	if !ok {
		return ""
	}

	title, ok := prop.(*notionapi.TitleProperty)
	if !ok || len(title.Title) == 0 {
		return ""
	}

	return title.Title[0].PlainText
}
