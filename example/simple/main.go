// Command simple is the declopt analogue of the teacher's example/simple:
// a handful of flat options plus positional arguments, printed back out.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/declopt/declopt"
)

func main() {
	verbosity := 0

	schema := declopt.NewSchema().
		Add("batch", declopt.Option{
			Kind:  declopt.KindFlag,
			Names: []string{"-b", "--batch"},
			Text:  "emit JSON formatted logs",
		}).
		Add("input", declopt.Option{
			Kind:  declopt.KindArray,
			Names: []string{"-i", "--input"},
			Text:  "add URL to measure",
		}).
		Add("verbose", declopt.Option{
			Kind:   declopt.KindFunction,
			Names:  []string{"-v", "--verbose"},
			Text:   "increases verbosity (repeatable)",
			Params: declopt.ParamCount{Exact: 0},
			Exec: func(ec *declopt.ExecContext) (declopt.Deferred[any], error) {
				verbosity++
				return declopt.Resolved[any](verbosity), nil
			},
		}).
		Add("args", declopt.Option{
			Kind:       declopt.KindArray,
			Positional: true,
		})

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
	batch, _ := values.Get("batch")
	input, _ := values.Get("input")
	args, _ := values.Get("args")

	fmt.Printf("batch  : %+v\n", batch)
	fmt.Printf("input  : %+v\n", input)
	fmt.Printf("verbose: %d\n", verbosity)
	fmt.Printf("args   : %+v\n", args)
}
