package differ

import "github.com/rs/zerolog"

// Option is a functional option for configuring a Differ.
type Option func(*differ)

// WithLogger traces skipped and expanded fields to logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(d *differ) {
		if logger != nil {
			d.logger = logger
		}
	}
}
