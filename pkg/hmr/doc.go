// Package hmr patches a live page with freshly rendered markup while
// keeping its interactive state.
//
// One update cycle moves through explicit phases:
//
//	Idle → Debounce → Fetch → Capture → Replace → Restore → Reinitialize → Idle
//
// Fetch and Replace failures move to Error and back to Idle; the page keeps
// running unpatched. Capture, Replace, Restore, ReexecuteScripts and
// SwapStylesheets are exported so each step can be driven and tested on its
// own. Restore is attempted even when Replace fails.
//
// Every cycle ends with an hmr:updated event on the window whose detail is
// an UpdatedDetail, and errors are queued on the development Overlay. The
// pipeline never reloads the page; a syntax error in a re-executed script
// only sets Result.ReloadHint.
package hmr
