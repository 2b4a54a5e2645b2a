// Command declopt-demo is the external-collaborator renderer: it loads a
// .env file, builds a small schema, parses os.Args against it, and renders
// help/errors using the formatter surface. declopt itself never does any
// of this rendering — see doc.go's non-goals.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-wordwrap"

	"github.com/declopt/declopt"
)

const wrapColumn = 78

func buildSchema() declopt.Schema {
	return declopt.NewSchema().
		Add("verbose", declopt.Option{
			Kind:     declopt.KindFlag,
			Names:    []string{"-v", "--verbose"},
			Negation: []string{"--no-verbose"},
			Group:    "general",
			Text:     "enable verbose logging",
		}).
		Add("output", declopt.Option{
			Kind:  declopt.KindSingle,
			Names: []string{"-o", "--output"},
			Group: "general",
			Text:  "output file path",
			Env:   []string{"DECLOPT_DEMO_OUTPUT"},
		}).
		Add("tag", declopt.Option{
			Kind:      declopt.KindArray,
			Names:     []string{"-t", "--tag"},
			Group:     "general",
			Text:      "attach a tag (repeatable)",
			Separator: ",",
			Unique:    true,
		}).
		Add("format", declopt.Option{
			Kind:    declopt.KindSingle,
			Names:   []string{"--format"},
			Group:   "output",
			Text:    "render format",
			Choices: []string{"text", "json"},
			Default: "text",
		}).
		Add("help", declopt.Option{
			Kind:  declopt.KindHelp,
			Names: []string{"-h", "--help"},
			Group: "general",
			Text:  "show this help message",
		})
}

func main() {
	logger := log.New(os.Stderr)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not load .env file", "error", err)
	}

	schema := buildSchema()
	parser := declopt.MustNew(schema)

	result := parser.Parse(context.Background(), os.Args[1:], declopt.ParseFlags{
		ClusterPrefix: "-",
		ProgramName:   "declopt-demo",
	})

	switch {
	case result.Err != nil:
		logger.Error("parse failed", "kind", result.Err.Kind.String(), "option", result.Err.OptionKey)
		fmt.Fprintln(os.Stderr, result.Err.Rendered)
		os.Exit(1)
	case result.Help != nil:
		fmt.Print(renderHelp(schema))
		os.Exit(0)
	case result.Version != nil:
		fmt.Println(result.Version.Text)
		os.Exit(0)
	}

	values := result.Values
	if verbose, _ := values.Get("verbose"); verbose == true {
		logger.SetLevel(log.DebugLevel)
	}
	output, _ := values.Get("output")
	format, _ := values.Get("format")
	tags, _ := values.Get("tag")

	logger.Debug("parsed options", "output", output, "format", format, "tags", tags)
	fmt.Printf("output=%v format=%v tags=%v\n", output, format, tags)
}

// renderHelp turns the formatter surface's data-only projection into ANSI-
// free help text, wrapping descriptions at wrapColumn with go-wordwrap and
// falling back to a kebab-case placeholder (via strcase) for any option
// that declared no surface name at all.
func renderHelp(schema declopt.Schema) string {
	f := declopt.NewFormatter(schema)
	var b strings.Builder
	for _, group := range f.Groups() {
		title := group.Name
		if title == "" {
			title = "options"
		}
		fmt.Fprintf(&b, "%s:\n", strings.ToUpper(title))
		for _, opt := range group.Options {
			if opt.Hide == declopt.HideAlways {
				continue
			}
			name := opt.PreferredName
			if name == "" {
				name = "--" + strcase.ToKebab(opt.Key)
			}
			fmt.Fprintf(&b, "  %s%s\n", name, paramSuffix(opt.ParamShape))
			if opt.Description != "" {
				wrapped := wordwrap.WrapString(opt.Description, wrapColumn)
				for _, line := range strings.Split(wrapped, "\n") {
					fmt.Fprintf(&b, "      %s\n", line)
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func paramSuffix(shape declopt.ParamShape) string {
	switch shape {
	case declopt.ParamOne:
		return " <param>"
	case declopt.ParamMany:
		return " <param>..."
	case declopt.ParamOptional:
		return " [<param>]"
	default:
		return ""
	}
}
