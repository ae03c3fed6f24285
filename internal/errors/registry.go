package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://enhance.vango.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Binding Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryBinding,
		Message:  "Unknown action type",
		Detail:   "The reducer does not handle this action type.",
		DocURL:   docBase + "E001",
	},
	"E002": {
		Category: CategoryBinding,
		Message:  "Formatter not found",
		Detail:   "The format attribute does not name a registered formatter, a registered function, or a js: expression.",
		DocURL:   docBase + "E002",
	},
	"E003": {
		Category: CategoryBinding,
		Message:  "Formatter failed",
		Detail:   "The formatter returned an error; the raw value is displayed instead.",
		DocURL:   docBase + "E003",
	},
	"E004": {
		Category: CategoryBinding,
		Message:  "Invalid formatter expression",
		Detail:   "The js: expression could not be parsed.",
		DocURL:   docBase + "E004",
	},
	"E005": {
		Category: CategoryBinding,
		Message:  "Empty state key",
		Detail:   "State keys must be non-empty strings.",
		DocURL:   docBase + "E005",
	},
	"E006": {
		Category: CategoryBinding,
		Message:  "Component not defined",
		Detail:   "The component attribute names a component that was never defined.",
		DocURL:   docBase + "E006",
	},

	// ============================================
	// Render Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryRender,
		Message:  "Container detached",
		Detail:   "The render container is no longer part of the document.",
		DocURL:   docBase + "E020",
	},
	"E021": {
		Category: CategoryRender,
		Message:  "Patch target missing",
		Detail:   "The DOM under the container no longer matches the last committed tree.",
		DocURL:   docBase + "E021",
	},
	"E022": {
		Category: CategoryRender,
		Message:  "Invalid raw HTML",
		Detail:   "Raw HTML could not be parsed in the container context.",
		DocURL:   docBase + "E022",
	},

	// ============================================
	// HMR Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryHMR,
		Message:  "HMR fetch failed",
		Detail:   "The replacement document could not be requested from the dev server.",
		DocURL:   docBase + "E040",
	},
	"E041": {
		Category: CategoryHMR,
		Message:  "HMR fetch returned an error status",
		DocURL:   docBase + "E041",
	},
	"E042": {
		Category: CategoryHMR,
		Message:  "HMR capture failed",
		DocURL:   docBase + "E042",
	},
	"E043": {
		Category: CategoryHMR,
		Message:  "HMR replace failed",
		DocURL:   docBase + "E043",
	},
	"E044": {
		Category: CategoryHMR,
		Message:  "HMR restore failed",
		DocURL:   docBase + "E044",
	},
	"E045": {
		Category: CategoryHMR,
		Message:  "Script re-execution failed",
		DocURL:   docBase + "E045",
	},
	"E046": {
		Category: CategoryHMR,
		Message:  "Syntax error in updated script",
		Detail:   "A full reload may be required to recover.",
		DocURL:   docBase + "E046",
	},
	"E047": {
		Category: CategoryHMR,
		Message:  "Route outside template root",
		Detail:   "The requested route resolves outside the configured template root.",
		DocURL:   docBase + "E047",
	},
	"E048": {
		Category: CategoryHMR,
		Message:  "Template not found",
		DocURL:   docBase + "E048",
	},
	"E049": {
		Category: CategoryHMR,
		Message:  "HMR reinitialize failed",
		Detail:   "Bindings or components could not be re-mounted after the update.",
		DocURL:   docBase + "E049",
	},

	// ============================================
	// Transport Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryTransport,
		Message:  "WebSocket connection failed",
		DocURL:   docBase + "E060",
	},
	"E061": {
		Category: CategoryTransport,
		Message:  "Unknown message type",
		Detail:   "The socket message type is not part of the protocol.",
		DocURL:   docBase + "E061",
	},
	"E062": {
		Category: CategoryTransport,
		Message:  "Malformed message",
		DocURL:   docBase + "E062",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Configuration not found",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		DocURL:   docBase + "E122",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Cannot read page",
		DocURL:   docBase + "E140",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
