package declopt

import "os"

// EnvView is the environment abstraction the parser reads `env`-declared
// variables through (spec.md §9 "Environment"). Reading through an
// interface instead of the process environment directly isolates the
// process-wide global behind a well-defined seam: the default view wraps
// os.LookupEnv, and tests inject an in-memory view.
type EnvView interface {
	// Lookup returns the value of name and whether it was set at all (an
	// empty-but-set variable and an unset variable are distinguished the
	// same way os.LookupEnv distinguishes them).
	Lookup(name string) (string, bool)
}

// osEnvView is the default EnvView, backed by the host process environment.
type osEnvView struct{}

// OSEnv returns the EnvView backed by the real process environment.
func OSEnv() EnvView { return osEnvView{} }

func (osEnvView) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// MapEnv is an in-memory EnvView, typically used by tests or by a command
// wanting a scoped/overridden view for a nested parse (spec.md §9 "Command
// options": nested parses read the same environment view as the outer
// parse by default, but a caller may construct a scoped MapEnv instead).
type MapEnv map[string]string

func (m MapEnv) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// firstNonEmpty tries each name in order against view and returns the first
// variable that is set to a non-empty value, per spec.md §4.4 end-of-input
// step 2 ("the first non-empty value").
func firstNonEmpty(view EnvView, names []string) (name, value string, found bool) {
	for _, n := range names {
		if v, ok := view.Lookup(n); ok && v != "" {
			return n, v, true
		}
	}
	return "", "", false
}
