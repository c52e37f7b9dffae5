// Package evaluator implements the path expression evaluation engine.
//
// The evaluator receives a parsed AST from the parser and walks it over an
// in-memory document tree. It supports:
//   - Property, index, slice and wildcard navigation
//   - Recursive descent with depth budgets
//   - Filter predicates with fuzzy and temporal operators
//   - Result caching keyed by the canonical AST text
//
// # Example
//
//	engine := evaluator.New(doc)
//	value, found, err := engine.Evaluate(path)
//
// # Concurrency
//
// Evaluation is single-threaded and synchronous. An Engine may be shared
// across goroutines: the result cache is mutex-guarded and each call owns
// its private EvalContext. Callers must not mutate the document while a
// call is in flight, and must call InvalidateCache after any mutation.
package evaluator

import (
	"log/slog"
	"time"

	"github.com/treedoc/pathquery/pkg/cache"
	"github.com/treedoc/pathquery/pkg/types"
)

// Default resource budgets.
const (
	DefaultMaxDepth      = 100
	DefaultMaxIterations = 100000
	DefaultRegexTimeout  = 100 * time.Millisecond
)

// Engine evaluates path expressions against one document. The engine owns
// the result cache for that binding; discard the engine or call
// InvalidateCache when the document changes.
type Engine struct {
	doc    interface{}
	opts   Options
	logger *slog.Logger
	cache  *cache.Cache // non-nil when caching is enabled
	cmp    Comparator
	now    func() time.Time
}

// Options configures engine behavior.
type Options struct {
	// MaxDepth limits recursion depth for both the main walk and
	// recursive descent. Defaults to DefaultMaxDepth.
	MaxDepth int
	// MaxIterations bounds total work per call, counted per node
	// evaluation and per element visited. Defaults to DefaultMaxIterations.
	MaxIterations int
	// RegexTimeout is the wall-clock bound for every matches-family
	// operator. Defaults to DefaultRegexTimeout.
	RegexTimeout time.Duration
	// Caching enables the per-engine result cache. Enabled by default for
	// engines; the one-shot helpers disable it to avoid key collisions
	// across different documents.
	Caching bool
	// CacheSize sets the maximum number of cached results. Defaults to 256.
	CacheSize int
	// SimilarityThreshold is the minimum fuzzy similarity score treated
	// as a match by ~= and fuzzyMatch. Defaults to 0.8.
	SimilarityThreshold float64
	// Comparator supplies the fuzzy/phonetic comparison algorithms.
	Comparator Comparator
	// Clock supplies the current time for temporal operators; a test seam.
	Clock func() time.Time
	// Debug enables debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Options)

// WithMaxDepth sets the maximum recursion depth.
func WithMaxDepth(depth int) Option {
	return func(opts *Options) {
		opts.MaxDepth = depth
	}
}

// WithMaxIterations sets the iteration budget per call.
func WithMaxIterations(n int) Option {
	return func(opts *Options) {
		opts.MaxIterations = n
	}
}

// WithRegexTimeout sets the wall-clock bound for regex matching.
func WithRegexTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.RegexTimeout = d
	}
}

// WithCaching enables or disables the result cache.
func WithCaching(enabled bool) Option {
	return func(opts *Options) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached results.
// Only effective when caching is enabled.
func WithCacheSize(size int) Option {
	return func(opts *Options) {
		opts.CacheSize = size
	}
}

// WithSimilarityThreshold sets the fuzzy match threshold in [0, 1].
func WithSimilarityThreshold(threshold float64) Option {
	return func(opts *Options) {
		opts.SimilarityThreshold = threshold
	}
}

// WithComparator replaces the fuzzy/phonetic comparison algorithms.
func WithComparator(cmp Comparator) Option {
	return func(opts *Options) {
		opts.Comparator = cmp
	}
}

// WithClock sets the time source for temporal operators.
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) Option {
	return func(opts *Options) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// New creates an Engine bound to the given document.
func New(doc interface{}, opts ...Option) *Engine {
	options := Options{
		MaxDepth:            DefaultMaxDepth,
		MaxIterations:       DefaultMaxIterations,
		RegexTimeout:        DefaultRegexTimeout,
		Caching:             true,
		CacheSize:           256,
		SimilarityThreshold: defaultSimilarityThreshold,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Comparator == nil {
		options.Comparator = NewComparator()
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}

	var c *cache.Cache
	if options.Caching {
		c = cache.New(options.CacheSize)
	}

	return &Engine{
		doc:    doc,
		opts:   options,
		logger: options.Logger,
		cache:  c,
		cmp:    options.Comparator,
		now:    options.Clock,
	}
}

// Evaluate walks the path over the document. The second return value
// distinguishes an absent result from an explicit null: a non-resolving
// path yields (nil, false, nil), never an error.
func (e *Engine) Evaluate(path *types.Path) (interface{}, bool, error) {
	if path == nil {
		return nil, false, types.NewEvalError(types.ErrOperandType, "nil path")
	}

	// Clock-anchored expressions bypass the cache: their results change as
	// time advances, and a cached match would go stale on a long-lived
	// engine.
	var key string
	cacheable := e.cache != nil && IsDeterministic(path)
	if cacheable {
		// Canonical structural key: built from node fields, not source text.
		key = path.String()
		if r, ok := e.cache.Get(key); ok {
			if e.opts.Debug {
				e.logger.Debug("cache hit", "path", key)
			}
			return r.Value, r.Found, nil
		}
	}

	ctx := newEvalContext(e.doc, e.opts.MaxDepth, e.opts.MaxIterations)
	value, found, err := e.evalPath(path, ctx)
	if err != nil {
		if e.opts.Debug {
			e.logger.Debug("evaluation aborted", "path", path.Source(), "error", err)
		}
		return nil, false, err
	}

	if cacheable {
		e.cache.Set(key, cache.Result{Value: value, Found: found})
	}
	return value, found, nil
}

// Exists reports whether the path resolves to at least one value.
// A syntactically valid, non-resolving path is false, not an error.
func (e *Engine) Exists(path *types.Path) (bool, error) {
	_, found, err := e.Evaluate(path)
	if err != nil {
		return false, err
	}
	return found, nil
}

// TypeOf returns the type tag of the value the path resolves to.
// An explicit null leaf reports TypeNull with found=true, distinct from a
// non-resolving path which reports found=false.
func (e *Engine) TypeOf(path *types.Path) (types.ValueType, bool, error) {
	value, found, err := e.Evaluate(path)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}
	return types.TypeOfValue(value), true, nil
}

// InvalidateCache drops all cached results. Must be called after any
// mutation of the bound document.
func (e *Engine) InvalidateCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// Cache returns the result cache, or nil if caching is disabled.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Evaluate is a one-shot convenience helper. Caching defaults off so that
// results from different documents can never collide under one key.
func Evaluate(doc interface{}, path *types.Path, opts ...Option) (interface{}, bool, error) {
	opts = append([]Option{WithCaching(false)}, opts...)
	return New(doc, opts...).Evaluate(path)
}

// Exists is a one-shot convenience helper with caching off.
func Exists(doc interface{}, path *types.Path, opts ...Option) (bool, error) {
	opts = append([]Option{WithCaching(false)}, opts...)
	return New(doc, opts...).Exists(path)
}

// TypeOf is a one-shot convenience helper with caching off.
func TypeOf(doc interface{}, path *types.Path, opts ...Option) (types.ValueType, bool, error) {
	opts = append([]Option{WithCaching(false)}, opts...)
	return New(doc, opts...).TypeOf(path)
}
