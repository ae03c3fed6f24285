package hmr

import (
	stderrors "errors"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/dom"
)

// Change summarises how much markup a Replace changed.
type Change struct {
	Inserted int // runes
	Deleted  int // runes
}

// Identical reports whether the replacement markup matched the old markup.
func (c Change) Identical() bool {
	return c.Inserted == 0 && c.Deleted == 0
}

// Replace overwrites the live root's content with the content of the
// replacement document's root. It returns the live root.
func Replace(live, next *dom.Document) (*html.Node, Change, error) {
	liveRoot := FindRoot(live.Root())
	if liveRoot == nil {
		return nil, Change{}, errors.New("E043").WithDetail("live document has no root")
	}
	nextRoot := FindRoot(next.Root())
	if nextRoot == nil {
		return liveRoot, Change{}, errors.New("E043").WithDetail("replacement document has no root")
	}

	change := diffMarkup(dom.InnerHTML(liveRoot), dom.InnerHTML(nextRoot))
	dom.RemoveChildren(liveRoot)
	dom.MoveChildren(liveRoot, nextRoot)
	return liveRoot, change, nil
}

func diffMarkup(before, after string) Change {
	var c Change
	if before == after {
		return c
	}
	dmp := diffmatchpatch.New()
	for _, d := range dmp.DiffMain(before, after, false) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			c.Inserted += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffDelete:
			c.Deleted += utf8.RuneCountInString(d.Text)
		}
	}
	return c
}

// Script re-execution markers.
const (
	AttrCore      = "data-enhance-core"
	AttrProcessed = "data-hmr-processed"
)

// CoreScriptIDs are scripts that register page-wide singletons and are
// never re-executed.
var CoreScriptIDs = map[string]bool{
	"enhance-core":      true,
	"enhance-transport": true,
	"enhance-hmr":       true,
}

// Script is an inline script handed to an Executor.
type Script struct {
	Node   *html.Node
	ID     string
	Type   string
	Source string
}

// Executor runs inline scripts.
type Executor interface {
	Execute(s Script) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(s Script) error

// Execute implements Executor.
func (f ExecutorFunc) Execute(s Script) error { return f(s) }

// SyntaxError is returned by an Executor for scripts that do not parse.
// It is the only failure that sets Result.ReloadHint.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return "SyntaxError: line " + strconv.Itoa(e.Line) + ": " + e.Msg
	}
	return "SyntaxError: " + e.Msg
}

// ScriptReport describes a ReexecuteScripts run.
type ScriptReport struct {
	Executed   int
	Skipped    int
	Errors     []error
	ReloadHint bool
}

// ReexecuteScripts recreates every inline script under root and hands it to
// exec. External, core and already processed scripts are skipped, as are
// script types that are not executable.
func ReexecuteScripts(root *html.Node, exec Executor) ScriptReport {
	var report ScriptReport
	for _, old := range dom.FindAll(root, dom.ByTag("script")) {
		if skipScript(old) {
			report.Skipped++
			continue
		}
		fresh := dom.Clone(old, true)
		dom.SetAttr(fresh, AttrProcessed, "")
		dom.Replace(old, fresh)

		if exec == nil {
			report.Executed++
			continue
		}
		s := Script{
			Node:   fresh,
			ID:     dom.AttrOr(fresh, "id", ""),
			Type:   dom.AttrOr(fresh, "type", ""),
			Source: dom.TextContent(fresh),
		}
		if err := exec.Execute(s); err != nil {
			var syntax *SyntaxError
			if stderrors.As(err, &syntax) {
				report.ReloadHint = true
				err = errors.New("E046").WithDetail(scriptName(s)).Wrap(err)
			} else {
				err = errors.New("E045").WithDetail(scriptName(s)).Wrap(err)
			}
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Executed++
	}
	return report
}

func skipScript(n *html.Node) bool {
	if dom.HasAttr(n, "src") || dom.HasAttr(n, AttrCore) || dom.HasAttr(n, AttrProcessed) {
		return true
	}
	if CoreScriptIDs[dom.AttrOr(n, "id", "")] {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(dom.AttrOr(n, "type", ""))) {
	case "", "text/javascript", "application/javascript", "module":
		return false
	}
	return true
}

func scriptName(s Script) string {
	if s.ID != "" {
		return "script#" + s.ID
	}
	return "inline script"
}

// CacheBustParam is the query parameter appended to swapped stylesheets.
const CacheBustParam = "_hmr"

// SwapStylesheets replaces every external stylesheet link in doc with a
// clone whose href carries a fresh cache-busting parameter. It returns how
// many links were swapped.
func SwapStylesheets(doc *dom.Document, stamp int64) int {
	swapped := 0
	for _, link := range doc.QueryAll(dom.ByTag("link")) {
		if !isStylesheet(link) {
			continue
		}
		href, ok := dom.Attr(link, "href")
		if !ok || href == "" {
			continue
		}
		fresh := dom.Clone(link, false)
		dom.SetAttr(fresh, "href", bust(href, stamp))
		dom.Replace(link, fresh)
		swapped++
	}
	return swapped
}

func isStylesheet(n *html.Node) bool {
	for _, rel := range strings.Fields(strings.ToLower(dom.AttrOr(n, "rel", ""))) {
		if rel == "stylesheet" {
			return true
		}
	}
	return false
}

func bust(href string, stamp int64) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	q := u.Query()
	q.Set(CacheBustParam, strconv.FormatInt(stamp, 10))
	u.RawQuery = q.Encode()
	return u.String()
}
