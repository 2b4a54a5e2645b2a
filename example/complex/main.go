// Command complex is the declopt analogue of the teacher's example/complex:
// a small subcommand tree (run websites|im, list) built from nested
// schemas instead of a reflected options struct.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/declopt/declopt"
)

func websitesSchema() declopt.Schema {
	return declopt.NewSchema().Add("http3", declopt.Option{
		Kind:  declopt.KindFlag,
		Names: []string{"--enable-http3"},
		Text:  "enable HTTP3 measurements",
	})
}

func imSchema() declopt.Schema {
	return declopt.NewSchema().Add("all-endpoints", declopt.Option{
		Kind:  declopt.KindFlag,
		Names: []string{"--test-all-endpoints"},
		Text:  "test all available endpoints",
	})
}

func runSchema() declopt.Schema {
	return declopt.NewSchema().
		Add("input", declopt.Option{
			Kind:  declopt.KindArray,
			Names: []string{"-i", "--input"},
			Text:  "add URL to measure",
		}).
		Add("websites", declopt.Command([]string{"websites"}, "checks for blocked websites", websitesSchema())).
		Add("im", declopt.Command([]string{"im"}, "checks for blocked IM apps", imSchema()))
}

func listSchema() declopt.Schema {
	return declopt.NewSchema().Add("id", declopt.Option{
		Kind:  declopt.KindSingle,
		Names: []string{"--id"},
		Text:  "ID of the input to show",
	})
}

func main() {
	schema := declopt.NewSchema().
		Add("batch", declopt.Option{
			Kind:  declopt.KindFlag,
			Names: []string{"-b", "--batch"},
			Text:  "emit JSON formatted logs",
		}).
		Add("run", declopt.Command([]string{"run"}, "runs nettests", runSchema())).
		Add("list", declopt.Command([]string{"list"}, "lists available measurements", listSchema()))

	parser := declopt.MustNew(schema)
	result := parser.Parse(context.Background(), os.Args[1:], declopt.ParseFlags{ClusterPrefix: "-"})

	switch {
	case result.Err != nil:
		fmt.Fprintln(os.Stderr, result.Err.Rendered)
		os.Exit(1)
	case result.Help != nil:
		fmt.Println(result.Help.Raw)
		os.Exit(0)
	}

	values := result.Values
	if run, ok := values.Get("run"); ok {
		if runValues, ok := run.(*declopt.Values); ok {
			switch {
			case mustIsSet(runValues, "websites"):
				log("run websites with: %+v", runValues)
			case mustIsSet(runValues, "im"):
				log("run IM with: %+v", runValues)
			}
			return
		}
	}
	if list, ok := values.Get("list"); ok {
		if listValues, ok := list.(*declopt.Values); ok {
			log("lists measurements with: %+v", listValues)
			return
		}
	}
	fmt.Fprintln(os.Stderr, "no subcommand selected")
	os.Exit(1)
}

func mustIsSet(v *declopt.Values, key string) bool {
	val, ok := v.Get(key)
	if !ok {
		return false
	}
	_, isNested := val.(*declopt.Values)
	return isNested
}

func log(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
