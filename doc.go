// Package declopt implements a declarative command-line argument parser.
//
// The caller supplies an option schema — a map from stable option keys to
// option descriptors ([Option]) — and declopt provides three coordinated
// services over it:
//
//  1. Validation of the schema itself, performed once when [New] builds a
//     [Parser].
//
//  2. Parsing of an argument vector (or a single command line, tokenized
//     internally) into a [Values] record, including shell-style completion.
//
//  3. A minimal data projection ([Formatter]) for external renderers that
//     turn a schema into ANSI help text, JSON, CSV, or Markdown. declopt
//     does not render, wrap, or colorize anything itself; see cmd/declopt-demo
//     for an example renderer built on top of the projection.
//
// # Option kinds
//
// Every entry in a [Schema] has a [Kind]: [KindFlag] for presence toggles,
// [KindSingle] for one scalar parameter, [KindArray] for zero or more
// parameters, [KindFunction] for a side-effecting callback, [KindCommand]
// for a nested subcommand schema, and [KindHelp]/[KindVersion] for terminal
// options that stop parsing and produce a message.
//
// # Example
//
//	schema := declopt.NewSchema().
//		Add("verbose", declopt.Option{
//			Kind:     declopt.KindFlag,
//			Names:    []string{"-v", "--verbose"},
//			Negation: []string{"--no-verbose"},
//			Default:  false,
//		}).
//		Add("output", declopt.Option{
//			Kind:     declopt.KindSingle,
//			Names:    []string{"-o", "--output"},
//			Required: true,
//		})
//	parser, err := declopt.New(schema)
//	if err != nil {
//		log.Fatal(err)
//	}
//	result := parser.Parse(context.Background(), os.Args[1:], declopt.ParseFlags{})
//	if result.Err != nil {
//		log.Fatal(result.Err)
//	}
//	values := result.Values
package declopt
