package repository

import (
	"log/slog"

	"github.com/roach88/repoquery/internal/convert"
	"github.com/roach88/repoquery/internal/derive"
)

// Option configures a Repository.
type Option func(*config)

type config struct {
	name    string
	cache   *derive.Cache
	conv    convert.Converter
	logger  *slog.Logger
	compare any
	key     any
}

// WithName sets the name used in logs and metrics. Defaults to the entity's
// collection name.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithCache sets the plan cache. Defaults to derive.DefaultCache.
func WithCache(cache *derive.Cache) Option {
	return func(c *config) { c.cache = cache }
}

// WithConverter sets the argument converter. Defaults to convert.Default.
func WithConverter(conv convert.Converter) Option {
	return func(c *config) { c.conv = conv }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithCompare sets the element ordering of sorted set results. T must be
// the repository's entity type.
func WithCompare[T any](compare func(a, b T) int) Option {
	return func(c *config) { c.compare = compare }
}

// WithKey sets the element identity of set results. T must be the
// repository's entity type.
func WithKey[T any](key func(T) (string, error)) Option {
	return func(c *config) { c.key = key }
}
