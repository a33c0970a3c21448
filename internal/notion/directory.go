package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/ledgerflow/importd/internal/importer"
)

// Directory is the entity and transaction surface of the ledger: everything
// the import pipeline needs from Notion.
type Directory struct {
	svc            Service
	entitiesDB     string
	transactionsDB string
}

// NewDirectory wires a directory over the given databases.
func NewDirectory(svc Service, entitiesDB, transactionsDB string) *Directory {
	return &Directory{svc: svc, entitiesDB: entitiesDB, transactionsDB: transactionsDB}
}

// ListEntities returns every entity in the directory. Pagination is handled
// internally.
func (d *Directory) ListEntities(ctx context.Context) ([]importer.Entity, error) {
	pages, err := d.queryAllPages(ctx, d.entitiesDB)
	if err != nil {
		return nil, fmt.Errorf("ListEntities: %w", err)
	}

	entities := make([]importer.Entity, 0, len(pages))
	for _, page := range pages {
		name := extractTitle(page, "Name")
		if name == "" {
			continue
		}
		entities = append(entities, importer.Entity{
			EntityID: string(page.ID),
			Name:     name,
			URL:      page.URL,
			Tags:     extractMultiSelect(page, "Default Tags"),
		})
	}
	return entities, nil
}

// FindEntityByName looks an entity up by exact name. Returns nil when absent.
func (d *Directory) FindEntityByName(ctx context.Context, name string) (*importer.Entity, error) {
	entities, err := d.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindEntityByName: %w", err)
	}
	want := strings.ToUpper(strings.TrimSpace(name))
	for i := range entities {
		if strings.ToUpper(strings.TrimSpace(entities[i].Name)) == want {
			return &entities[i], nil
		}
	}
	return nil, nil
}

// CreateEntity creates a new entity page and returns its record.
func (d *Directory) CreateEntity(ctx context.Context, name string) (*importer.Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("CreateEntity: empty name")
	}

	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: name},
				},
			},
		},
	}

	page, err := d.svc.CreatePage(ctx, d.entitiesDB, props)
	if err != nil {
		return nil, fmt.Errorf("CreateEntity: %w", err)
	}
	return &importer.Entity{
		EntityID: string(page.ID),
		Name:     name,
		URL:      page.URL,
	}, nil
}

// AvailableTags returns the tag universe known to the server: the options of
// the transactions database's Tags multi-select.
func (d *Directory) AvailableTags(ctx context.Context) ([]string, error) {
	db, err := d.svc.GetDatabase(ctx, d.transactionsDB)
	if err != nil {
		return nil, fmt.Errorf("AvailableTags: %w", err)
	}

	prop, ok := db.Properties["Tags"]
	if !ok {
		return nil, nil
	}
	msConfig, ok := prop.(*notionapi.MultiSelectPropertyConfig)
	if !ok {
		return nil, nil
	}

	tags := make([]string, 0, len(msConfig.MultiSelect.Options))
	for _, opt := range msConfig.MultiSelect.Options {
		tags = append(tags, opt.Name)
	}
	return tags, nil
}

// ExistingChecksums returns the content checksums of every transaction
// already in the ledger, for deduplication.
func (d *Directory) ExistingChecksums(ctx context.Context) (map[string]bool, error) {
	pages, err := d.queryAllPages(ctx, d.transactionsDB)
	if err != nil {
		return nil, fmt.Errorf("ExistingChecksums: %w", err)
	}

	checksums := make(map[string]bool, len(pages))
	for _, page := range pages {
		if sum := extractRichText(page, "Checksum"); sum != "" {
			checksums[sum] = true
		}
	}
	return checksums, nil
}

// WriteTransaction creates a ledger page for one confirmed transaction.
func (d *Directory) WriteTransaction(ctx context.Context, tx importer.ConfirmedTransaction) error {
	props := TransactionToProperties(tx)
	if _, err := d.svc.CreatePage(ctx, d.transactionsDB, props); err != nil {
		return fmt.Errorf("WriteTransaction %s: %w", tx.Checksum, err)
	}
	return nil
}

// queryAllPages queries all pages from a database, following pagination.
func (d *Directory) queryAllPages(ctx context.Context, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := d.svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, err
		}

		allPages = append(allPages, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return allPages, nil
}

// extractTitle pulls the plain text of a title property. Empty if absent.
func extractTitle(page notionapi.Page, name string) string {
	if prop, ok := page.Properties[name]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			if len(title.Title) > 0 {
				return title.Title[0].PlainText
			}
		}
	}
	return ""
}

// extractRichText pulls the plain text of a rich-text property. Empty if absent.
func extractRichText(page notionapi.Page, name string) string {
	if prop, ok := page.Properties[name]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}

// extractMultiSelect pulls the option names of a multi-select property.
func extractMultiSelect(page notionapi.Page, name string) []string {
	prop, ok := page.Properties[name]
	if !ok {
		return nil
	}
	ms, ok := prop.(*notionapi.MultiSelectProperty)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ms.MultiSelect))
	for _, opt := range ms.MultiSelect {
		out = append(out, opt.Name)
	}
	return out
}
