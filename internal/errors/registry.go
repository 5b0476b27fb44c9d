package errors

// Error codes.
const (
	CodeInvalidTarget  = "N001"
	CodeMissingElement = "N002"
	CodeCallbackFailed = "N003"
	CodeCrossOrigin    = "N004"

	CodeMalformedFrame = "P001"
	CodeUnexpectedType = "P002"

	CodeInvalidConfig = "C001"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
	DocURL     string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Navigation (N001-N099)
	// ============================================

	CodeInvalidTarget: {
		Category:   CategoryNavigation,
		Message:    "Invalid navigation target",
		Suggestion: "Pass a non-empty path or URL string, such as \"/about\" or \"../list?page=2\".",
		DocURL:     "https://vango.dev/docs/navsync/errors/N001",
	},
	CodeMissingElement: {
		Category:   CategoryNavigation,
		Message:    "Link element not found",
		Suggestion: "Render the anchor carrying the link class before activating its binding.",
		DocURL:     "https://vango.dev/docs/navsync/errors/N002",
	},
	CodeCallbackFailed: {
		Category: CategoryCallback,
		Message:  "Location callback failed",
		DocURL:   "https://vango.dev/docs/navsync/errors/N003",
	},
	CodeCrossOrigin: {
		Category:   CategoryNavigation,
		Message:    "Navigation target is on another origin",
		Suggestion: "History entries can only be created for the current origin; render a plain link instead.",
		DocURL:     "https://vango.dev/docs/navsync/errors/N004",
	},

	// ============================================
	// Protocol (P001-P099)
	// ============================================

	CodeMalformedFrame: {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		DocURL:   "https://vango.dev/docs/navsync/errors/P001",
	},
	CodeUnexpectedType: {
		Category: CategoryProtocol,
		Message:  "Unexpected frame type",
		DocURL:   "https://vango.dev/docs/navsync/errors/P002",
	},

	// ============================================
	// Config (C001-C099)
	// ============================================

	CodeInvalidConfig: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		DocURL:   "https://vango.dev/docs/navsync/errors/C001",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
