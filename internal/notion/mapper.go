package notion

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/ledgerflow/importd/internal/importer"
)

// TransactionToProperties converts a confirmed transaction to the Notion
// properties of a transactions-database page.
func TransactionToProperties(tx importer.ConfirmedTransaction) notionapi.Properties {
	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: tx.Description},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(
						tx.Date.Year,
						tx.Date.Month,
						tx.Date.Day,
						0, 0, 0, 0, time.UTC,
					))
					return &d
				}(),
			},
		},
		"Online": notionapi.CheckboxProperty{
			Checkbox: tx.Online,
		},
		"Checksum": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: tx.Checksum},
				},
			},
		},
	}

	if tx.Account != "" {
		props["Account"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Account},
		}
	}

	if tx.Location != "" {
		props["Location"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: tx.Location},
				},
			},
		}
	}

	if tx.EntityID != "" {
		props["Entity"] = notionapi.RelationProperty{
			Relation: []notionapi.Relation{
				{ID: notionapi.PageID(tx.EntityID)},
			},
		}
	}

	if len(tx.Tags) > 0 {
		options := make([]notionapi.Option, 0, len(tx.Tags))
		for _, tag := range tx.Tags {
			options = append(options, notionapi.Option{Name: tag})
		}
		props["Tags"] = notionapi.MultiSelectProperty{
			MultiSelect: options,
		}
	}

	return props
}
