package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treedoc/pathquery/pkg/parser"
	"github.com/treedoc/pathquery/pkg/types"
)

func TestEngineCaching(t *testing.T) {
	engine := New(storeDoc())
	require.NotNil(t, engine.Cache())

	path := parser.MustParse("$.store.bicycle.color")

	value, found, err := engine.Evaluate(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "red", value)
	assert.Equal(t, 1, engine.Cache().Len())

	// Second evaluation hits the cache and returns the same result.
	value, found, err = engine.Evaluate(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "red", value)
	assert.Equal(t, 1, engine.Cache().Len())
}

func TestEngineCacheKeyIsCanonical(t *testing.T) {
	engine := New(storeDoc())

	// Different spellings of the same path share one cache entry.
	for _, expr := range []string{"$.store.bicycle.color", "store.bicycle.color", "  store . bicycle . color"} {
		path := parser.MustParse(expr)
		_, _, err := engine.Evaluate(path)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, engine.Cache().Len())
}

func TestEngineCachesAbsentResults(t *testing.T) {
	engine := New(storeDoc())
	path := parser.MustParse("$.no.such.path")

	for i := 0; i < 2; i++ {
		_, found, err := engine.Evaluate(path)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 1, engine.Cache().Len())
}

func TestEngineErrorsAreNotCached(t *testing.T) {
	engine := New(storeDoc())
	path := parser.MustParse("$.__proto__")

	_, _, err := engine.Evaluate(path)
	require.Error(t, err)
	assert.Equal(t, 0, engine.Cache().Len())
}

func TestEngineInvalidateCache(t *testing.T) {
	doc := map[string]interface{}{"a": float64(1)}
	engine := New(doc)
	path := parser.MustParse("$.a")

	value, _, err := engine.Evaluate(path)
	require.NoError(t, err)
	assert.Equal(t, float64(1), value)

	// A document mutation is invisible until the cache is dropped.
	doc["a"] = float64(2)
	value, _, _ = engine.Evaluate(path)
	assert.Equal(t, float64(1), value)

	engine.InvalidateCache()
	value, _, _ = engine.Evaluate(path)
	assert.Equal(t, float64(2), value)
}

func TestEngineCachingDisabled(t *testing.T) {
	engine := New(storeDoc(), WithCaching(false))
	assert.Nil(t, engine.Cache())

	path := parser.MustParse("$.store.bicycle.color")
	value, found, err := engine.Evaluate(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "red", value)
}

// Clock-anchored expressions must observe the advancing clock on a
// long-lived engine; a cached result would keep reporting a stale match.
func TestClockAnchoredExpressionsBypassCache(t *testing.T) {
	current := time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	doc := map[string]interface{}{
		"events": []interface{}{
			map[string]interface{}{
				"name": "recent",
				"ts":   float64(current.Add(-48 * time.Hour).UnixMilli()),
			},
		},
	}
	engine := New(doc, WithClock(func() time.Time { return current }))
	path := parser.MustParse("$.events[?(@.ts daysAgo 3)].name")

	value, _, err := engine.Evaluate(path)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"recent"}, value)
	assert.Equal(t, 0, engine.Cache().Len())

	// Five days later the event falls out of the window.
	current = current.Add(5 * 24 * time.Hour)
	value, _, err = engine.Evaluate(path)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, value)

	// Deterministic expressions still cache.
	_, _, err = engine.Evaluate(parser.MustParse("$.events[0].name"))
	require.NoError(t, err)
	assert.Equal(t, 1, engine.Cache().Len())
}

func TestIsDeterministic(t *testing.T) {
	for _, expr := range []string{
		"$.a.b",
		"$..price",
		"$.xs[?(@.v > 3 && @.name contains 'x')]",
		"$.xs[?(@.ts between ['2026-01-01', '2026-12-31'])]",
	} {
		assert.True(t, IsDeterministic(parser.MustParse(expr)), expr)
	}

	for _, expr := range []string{
		"$.xs[?(@.ts daysAgo 7)]",
		"$.xs[?(@.ts after '@now-1d')]",
		"$.xs[?(@.ts < now())]",
		"$.xs[?(@.ts before 'P7D')]",
		"$.xs[?(@.ts between ['@today-1w', '@today'])]",
	} {
		assert.False(t, IsDeterministic(parser.MustParse(expr)), expr)
	}

	assert.True(t, IsDeterministic(nil))
}

func TestEngineExists(t *testing.T) {
	engine := New(storeDoc(), WithCaching(false))

	ok, err := engine.Exists(parser.MustParse("$.store.bicycle"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.Exists(parser.MustParse("$.store.airplane"))
	require.NoError(t, err)
	assert.False(t, ok)

	// An explicit null exists.
	ok, err = engine.Exists(parser.MustParse("$.nothing"))
	require.NoError(t, err)
	assert.True(t, ok)

	// Errors propagate instead of reporting false.
	_, err = engine.Exists(parser.MustParse("$.__proto__"))
	require.Error(t, err)
}

func TestEngineTypeOf(t *testing.T) {
	engine := New(storeDoc(), WithCaching(false))

	tests := []struct {
		expr string
		want types.ValueType
	}{
		{"$.store", types.TypeObject},
		{"$.store.book", types.TypeArray},
		{"$.store.bicycle.color", types.TypeString},
		{"$.store.bicycle.price", types.TypeNumber},
		{"$.nothing", types.TypeNull},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			vt, found, err := engine.TypeOf(parser.MustParse(tc.expr))
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, tc.want, vt)
		})
	}

	_, found, err := engine.TypeOf(parser.MustParse("$.absent"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOneShotHelpers(t *testing.T) {
	doc := storeDoc()

	value, found, err := Evaluate(doc, parser.MustParse("$.store.bicycle.color"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "red", value)

	ok, err := Exists(doc, parser.MustParse("$.store"))
	require.NoError(t, err)
	assert.True(t, ok)

	vt, found, err := TypeOf(doc, parser.MustParse("$.nums"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, types.TypeArray, vt)
}

func TestOptionDefaults(t *testing.T) {
	engine := New(nil)
	assert.Equal(t, DefaultMaxDepth, engine.opts.MaxDepth)
	assert.Equal(t, DefaultMaxIterations, engine.opts.MaxIterations)
	assert.Equal(t, DefaultRegexTimeout, engine.opts.RegexTimeout)
	assert.Equal(t, defaultSimilarityThreshold, engine.opts.SimilarityThreshold)
	assert.True(t, engine.opts.Caching)
	assert.NotNil(t, engine.cmp)
	assert.NotNil(t, engine.now)
	assert.NotNil(t, engine.logger)
}

func TestSimilarityThresholdOption(t *testing.T) {
	doc := map[string]interface{}{
		"names": []interface{}{
			map[string]interface{}{"v": "jonathan"},
		},
	}
	path := parser.MustParse("$.names[?(@.v ~= 'jonathon')].v")

	// One edit in eight is 0.875: below a 0.9 threshold, above 0.8.
	strict := New(doc, WithCaching(false), WithSimilarityThreshold(0.9))
	value, _, err := strict.Evaluate(path)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, value)

	lax := New(doc, WithCaching(false), WithSimilarityThreshold(0.8))
	value, _, err = lax.Evaluate(path)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"jonathan"}, value)
}

type upperComparator struct{ Comparator }

func (upperComparator) Phonetic(s string) string { return s }

func TestComparatorOption(t *testing.T) {
	doc := map[string]interface{}{
		"names": []interface{}{
			map[string]interface{}{"v": "Smith"},
		},
	}
	path := parser.MustParse("$.names[?(@.v soundsLike 'Smyth')].v")

	// The default comparator treats Smith/Smyth as homophones; an exact
	// phonetic comparator does not.
	value, _, err := New(doc, WithCaching(false)).Evaluate(path)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Smith"}, value)

	exact := upperComparator{NewComparator()}
	value, _, err = New(doc, WithCaching(false), WithComparator(exact)).Evaluate(path)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, value)
}
