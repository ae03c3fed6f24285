package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/vango-dev/enhance/internal/errors"
	"github.com/vango-dev/enhance/pkg/binding"
	"github.com/vango-dev/enhance/pkg/component"
	"github.com/vango-dev/enhance/pkg/dom"
	"github.com/vango-dev/enhance/pkg/format"
)

// bindingInfo describes one state-binding element.
type bindingInfo struct {
	Tag    string
	Key    string
	Format string
}

// componentInfo describes one component root.
type componentInfo struct {
	Name  string
	Props component.Props
	Refs  []string
}

// pageReport is the result of inspecting one page.
type pageReport struct {
	Bindings   []bindingInfo
	Components []componentInfo
	Issues     []error
}

func checkCmd() *cobra.Command {
	var (
		formatters []string
		components []string
	)

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Check the bindings and components of a page",
		Long: `Check parses a server-rendered page and lists its state bindings
and components. Format attributes are resolved against the built-in
formatters plus any names passed with --formatter; unknown formatters,
malformed expressions and empty keys are reported as issues.

Examples:
  enhance check templates/index.html
  enhance check page.html --formatter money --component counter`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.New("E140").WithDetail(args[0]).Wrap(err)
			}
			defer f.Close()

			report, err := inspectPage(f, formatters, components)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), args[0], report)
			if n := len(report.Issues); n > 0 {
				return errors.Newf(errors.CategoryCLI, "%d issue(s) found", n)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&formatters, "formatter", nil, "Formatter names registered by the page script")
	cmd.Flags().StringSliceVar(&components, "component", nil, "Component names defined by the page script (enables unknown component checks)")

	return cmd
}

// inspectPage collects the bindings and components of a page. Formatter
// names in extra are treated as registered.
func inspectPage(r io.Reader, extra, defined []string) (*pageReport, error) {
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, errors.New("E140").Wrap(err)
	}

	formats := format.NewRegistry()
	for _, name := range extra {
		formats.RegisterFunc(name, func(v any) any { return v })
	}
	known := make(map[string]bool, len(defined))
	for _, name := range defined {
		known[name] = true
	}

	report := &pageReport{}
	for _, el := range doc.QueryAll(dom.ByAttr(binding.AttrBinding)) {
		key, _ := dom.Attr(el, binding.AttrBinding)
		spec := dom.AttrOr(el, binding.AttrFormat, "")
		report.Bindings = append(report.Bindings, bindingInfo{Tag: el.Data, Key: key, Format: spec})

		if strings.TrimSpace(key) == "" {
			report.Issues = append(report.Issues, errors.New("E005").WithDetail("<"+el.Data+">"))
		}
		if _, err := formats.Resolve(spec); err != nil {
			report.Issues = append(report.Issues, err)
		}
	}

	for _, el := range doc.QueryAll(dom.ByAttr(component.AttrComponent)) {
		name, _ := dom.Attr(el, component.AttrComponent)
		report.Components = append(report.Components, componentInfo{
			Name:  name,
			Props: component.ReadProps(el),
			Refs:  refNames(el),
		})
		if len(known) > 0 && !known[name] {
			report.Issues = append(report.Issues, errors.New("E006").WithDetail(name))
		}
	}
	return report, nil
}

func refNames(root *html.Node) []string {
	refs := component.CollectRefs(root)
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func printReport(w io.Writer, name string, report *pageReport) {
	fmt.Fprintf(w, "%s\n\n", name)

	fmt.Fprintf(w, "  Bindings (%d)\n", len(report.Bindings))
	for _, b := range report.Bindings {
		if b.Format != "" {
			fmt.Fprintf(w, "    <%s> %s | %s\n", b.Tag, b.Key, b.Format)
		} else {
			fmt.Fprintf(w, "    <%s> %s\n", b.Tag, b.Key)
		}
	}

	fmt.Fprintf(w, "\n  Components (%d)\n", len(report.Components))
	for _, c := range report.Components {
		fmt.Fprintf(w, "    %s", c.Name)
		if len(c.Props) > 0 {
			keys := make([]string, 0, len(c.Props))
			for k := range c.Props {
				keys = append(keys, k+"="+c.Props[k])
			}
			sort.Strings(keys)
			fmt.Fprintf(w, " props[%s]", strings.Join(keys, " "))
		}
		if len(c.Refs) > 0 {
			fmt.Fprintf(w, " refs[%s]", strings.Join(c.Refs, " "))
		}
		fmt.Fprintln(w)
	}

	if len(report.Issues) > 0 {
		fmt.Fprintf(w, "\n  Issues (%d)\n", len(report.Issues))
		for _, err := range report.Issues {
			fmt.Fprintf(w, "    %s\n", errors.Summarize(err))
		}
	}
	fmt.Fprintln(w)
}
