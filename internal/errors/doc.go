// Package errors provides structured, actionable errors for enhance.
//
// Every failure the runtime can surface carries a code (e.g. "E040"), a
// category, a short message, and optionally a detail, a suggestion, and a
// wrapped cause:
//
//   - binding: programmer errors around state keys, reducers and formatters
//   - render: DOM commit failures (detached containers, stale patch paths)
//   - hmr: hot update fetch and apply failures
//   - transport: socket message errors
//   - config: configuration loading and validation
//   - cli: command line failures
//
// # Usage
//
//	err := errors.New("E001").
//	    WithDetail(`action "reset" is not handled by the "cart" reducer`).
//	    WithSuggestion("Add a case for the action type or dispatch a known one")
//
//	fmt.Println(err.Format())
//
// Summary returns the single-line form used by the dev overlay to
// deduplicate repeated failures.
package errors
