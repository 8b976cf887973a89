// Package errors provides structured, actionable error messages for routemap.
//
// Errors carry a short code (e.g. "R010") that maps to a registered template
// with a category, a one-line message and a longer explanation. The CLI uses
// Format to print them; libraries return them as ordinary errors.
//
// # Error Categories
//
//   - routing: path matching failures
//   - load: module loading failures
//   - decode: transport codec failures
//   - manifest: manifest parsing and validation problems
//   - config: routemap.json problems
//   - cli: command usage problems
//
// # Usage
//
//	err := errors.New("R012").
//	    WithLocation("manifest.json", 0, 0).
//	    WithDetail("/users/stats references node 58, manifest has 58 nodes").
//	    WithSuggestion("Regenerate the manifest with 'routemap gen'")
//
//	fmt.Println(err.Format())
package errors
