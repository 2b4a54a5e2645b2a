package declopt

// ensureHelpInjected returns s unchanged if it already declares a KindHelp
// option; otherwise it returns a copy with a synthetic "-h"/"--help" option
// appended. This mirrors the teacher's automatic help-flag registration
// (command.go's maybeAddHelpFlags), generalized so that every nested
// command schema gets its own contextual help even when the caller forgot
// to declare one.
func ensureHelpInjected(s Schema) Schema {
	for _, key := range s.Keys() {
		if s.MustGet(key).Kind == KindHelp {
			return s
		}
	}
	out := NewSchema()
	for _, key := range s.Keys() {
		out = out.Add(key, s.MustGet(key))
	}
	return out.Add("help", Option{
		Kind:  KindHelp,
		Names: []string{"-h", "--help"},
	})
}

// RewriteHelpInvocation implements the teacher's `args0 help a b c` ->
// `args0 a b c --help` trick (command.go's CommandParser.Getopt), adapted
// to declopt's schema-driven commands: a trailing bare "help" token is
// rewritten to "--help" so that whichever parser — outer or nested — ends
// up consuming these arguments shows its own contextual help instead of
// failing with an unknown-option or unknown-command error.
func RewriteHelpInvocation(args []string) []string {
	if len(args) == 0 || args[len(args)-1] != "help" {
		return args
	}
	out := make([]string, len(args)-1, len(args))
	copy(out, args[:len(args)-1])
	return append(out, "--help")
}

// Command builds a KindCommand [Option], the declarative equivalent of the
// teacher's Subcommand/LeafSubcommand constructors: a set of surface names,
// a human description (carried in Text for the formatter surface), and the
// nested schema owning the subcommand's own options.
func Command(names []string, description string, nested Schema) Option {
	return Option{
		Kind:   KindCommand,
		Names:  names,
		Text:   description,
		Nested: nested,
	}
}
