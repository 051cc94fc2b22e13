package coordinator

import "github.com/rs/zerolog"

type Option func(*Options)

type Options struct {
	Logger         zerolog.Logger
	Observer       Observer
	MaxConcurrency int
	Delimiter      string
}

func defaultOptions() Options {
	return Options{Logger: zerolog.Nop(), Delimiter: DefaultDelimiter}
}

func WithLogger(l zerolog.Logger) Option { return func(o *Options) { o.Logger = l } }

func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithMaxConcurrency bounds how many units of one dispatch run at once.
// n <= 0 means unbounded.
func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

// WithDelimiter sets the separator used to join FailFast and FailSoft results.
func WithDelimiter(d string) Option { return func(o *Options) { o.Delimiter = d } }
