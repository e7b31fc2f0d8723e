package badger

import "log/slog"

// Option configures a repository opened with NewRepository.
type Option func(*repoOptions)

type repoOptions struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *repoOptions) {
		o.logger = logger
	}
}

func newOptions(opts ...Option) *repoOptions {
	o := &repoOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
