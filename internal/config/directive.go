package config

import "strings"

// DirectivePrefix starts a line that reconfigures a stdin run.
const DirectivePrefix = "__args__"

// Directive is the result of parsing a directive line.
type Directive struct {
	Help bool
	// Options replaces the run configuration. Settings not expressible in a
	// directive are carried over from the base options.
	Options Options
}

// ParseDirective checks whether line is a directive such as
//
//	__ARGS__ Verbose -s LiSt
//
// Tokens are case-insensitive; each mode has a long name and a one-letter
// short form: help/-h, slowmo/-s, taint/-t, verbose/-v, list/-l. A directive
// replaces the four modes of base rather than adding to them. ok is false
// when line is not a directive.
func ParseDirective(line string, base Options) (d Directive, ok bool) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 || !strings.Contains(fields[0], DirectivePrefix) {
		return Directive{}, false
	}

	has := make(map[string]bool, len(fields)-1)
	for _, f := range fields[1:] {
		has[f] = true
	}
	either := func(long, short string) bool { return has[long] || has[short] }

	opts := base
	opts.Slowmo = either("slowmo", "-s")
	opts.Taint = either("taint", "-t")
	opts.Verbose = either("verbose", "-v")
	opts.List = either("list", "-l")

	return Directive{
		Help:    either("help", "-h"),
		Options: opts.Resolve(),
	}, true
}
