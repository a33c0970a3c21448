package importer

// WarningCode identifies a non-row-level condition surfaced by a background
// job. Critical codes block automatic step advancement on the client; the
// rest are informational.
type WarningCode string

const (
	WarnNotionDatabaseNotFound      WarningCode = "NOTION_DATABASE_NOT_FOUND"
	WarnNotionAPIError              WarningCode = "NOTION_API_ERROR"
	WarnDeduplicationDisabled       WarningCode = "DEDUPLICATION_DISABLED"
	WarnAICategorizationUnavailable WarningCode = "AI_CATEGORIZATION_UNAVAILABLE"
	WarnAIAPIError                  WarningCode = "AI_API_ERROR"
)

// Critical reports whether the code must block automatic advancement. The
// user may still continue explicitly.
func (c WarningCode) Critical() bool {
	switch c {
	case WarnNotionDatabaseNotFound, WarnNotionAPIError:
		return true
	}
	return false
}

// Warning pairs a code with a human-readable message.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// HasCritical reports whether any warning in the list is critical.
func HasCritical(warnings []Warning) bool {
	for _, w := range warnings {
		if w.Code.Critical() {
			return true
		}
	}
	return false
}
