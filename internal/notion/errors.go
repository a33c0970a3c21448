package notion

import (
	"errors"

	"github.com/jomei/notionapi"

	"github.com/ledgerflow/importd/internal/importer"
)

// ClassifyError maps a Notion API failure onto the warning taxonomy the
// client understands. Both codes are critical: they block automatic step
// advancement but the user may continue explicitly.
func ClassifyError(err error) importer.Warning {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == "object_not_found" {
		return importer.Warning{
			Code:    importer.WarnNotionDatabaseNotFound,
			Message: "Notion database not found: " + apiErr.Message,
		}
	}
	return importer.Warning{
		Code:    importer.WarnNotionAPIError,
		Message: "Notion API error: " + err.Error(),
	}
}
