package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Routing (R001-R009)
	"R001": {
		Category: CategoryRouting,
		Message:  "No route matches path",
	},
	"R002": {
		Category: CategoryRouting,
		Message:  "Invalid path",
		Detail:   "The path could not be canonicalized.",
	},

	// Manifest (R010-R029)
	"R010": {
		Category: CategoryManifest,
		Message:  "Duplicate route pattern",
		Detail:   "Two dictionary entries resolve to the same URL pattern.",
	},
	"R011": {
		Category: CategoryManifest,
		Message:  "Ambiguous parameter routes",
		Detail:   "Sibling routes have parameter segments that match the same paths.",
	},
	"R012": {
		Category: CategoryManifest,
		Message:  "Node index out of range",
	},
	"R013": {
		Category: CategoryManifest,
		Message:  "Unknown parameter matcher",
	},
	"R014": {
		Category: CategoryManifest,
		Message:  "Invalid route pattern",
	},
	"R015": {
		Category: CategoryManifest,
		Message:  "Manifest could not be read",
	},

	// Load (R030-R039)
	"R030": {
		Category: CategoryLoad,
		Message:  "Module failed to load",
	},

	// Decode (R040-R049)
	"R040": {
		Category: CategoryDecode,
		Message:  "Unregistered transport type",
	},
	"R041": {
		Category: CategoryDecode,
		Message:  "Transport value could not be decoded",
	},

	// Config (R120-R149)
	"R120": {
		Category: CategoryConfig,
		Message:  "Invalid routemap.json",
	},
	"R122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"R141": {
		Category: CategoryConfig,
		Message:  "routemap.json not found",
	},

	// CLI (R150-R159)
	"R150": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
