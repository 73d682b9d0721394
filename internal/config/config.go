package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/atikulmunna/logtally/internal/aggregator"
	"github.com/atikulmunna/logtally/internal/generator"
)

// Keys shared by flags, the config file and LOGTALLY_* environment variables.
const (
	KeySlowmo    = "slowmo"
	KeyTaint     = "taint"
	KeyVerbose   = "verbose"
	KeyList      = "list"
	KeyBatchSize = "batch_size"
	KeyCadence   = "cadence"
	KeyFollow    = "follow"
	KeyFromStart = "from_start"
	KeyOutput    = "output"
	KeyColor     = "color"
	KeyLogLevel  = "log_level"
)

// Options is the resolved configuration for one run.
type Options struct {
	Slowmo    bool
	Taint     bool
	Verbose   bool
	List      bool
	BatchSize int
	Cadence   int
	Follow    []string
	FromStart bool
	Output    string
	Color     bool
	LogLevel  string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBatchSize, generator.DefaultBatchSize)
	v.SetDefault(KeyCadence, aggregator.DefaultCadence)
	v.SetDefault(KeyOutput, "text")
	v.SetDefault(KeyLogLevel, "warn")
}

// Load reads Options from v.
func Load(v *viper.Viper) Options {
	opts := Options{
		Slowmo:    v.GetBool(KeySlowmo),
		Taint:     v.GetBool(KeyTaint),
		Verbose:   v.GetBool(KeyVerbose),
		List:      v.GetBool(KeyList),
		BatchSize: v.GetInt(KeyBatchSize),
		Cadence:   v.GetInt(KeyCadence),
		Follow:    v.GetStringSlice(KeyFollow),
		FromStart: v.GetBool(KeyFromStart),
		Output:    strings.ToLower(v.GetString(KeyOutput)),
		Color:     v.GetBool(KeyColor),
		LogLevel:  v.GetString(KeyLogLevel),
	}
	return opts.Resolve()
}

// Resolve applies the implications between modes: taint forces verbose.
func (o Options) Resolve() Options {
	if o.Taint {
		o.Verbose = true
	}
	return o
}

// Aggregator returns the aggregator configuration for these options.
func (o Options) Aggregator() aggregator.Config {
	return aggregator.Config{Verbose: o.Verbose, Taint: o.Taint, Cadence: o.Cadence}
}

// Modes lists the enabled run modes, for diagnostics.
func (o Options) Modes() []string {
	var modes []string
	for _, m := range []struct {
		on   bool
		name string
	}{
		{o.Slowmo, "slowmo"},
		{o.Taint, "taint"},
		{o.Verbose, "verbose"},
		{o.List, "list"},
	} {
		if m.on {
			modes = append(modes, m.name)
		}
	}
	return modes
}
