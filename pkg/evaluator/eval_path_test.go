package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treedoc/pathquery/pkg/parser"
	"github.com/treedoc/pathquery/pkg/types"
)

// storeDoc mirrors the shape produced by encoding/json: numbers are
// float64, objects map[string]interface{}, arrays []interface{}.
func storeDoc() map[string]interface{} {
	return map[string]interface{}{
		"store": map[string]interface{}{
			"book": []interface{}{
				map[string]interface{}{
					"category": "reference",
					"author":   "Nigel Rees",
					"title":    "Sayings of the Century",
					"price":    8.95,
				},
				map[string]interface{}{
					"category": "fiction",
					"author":   "Evelyn Waugh",
					"title":    "Sword of Honour",
					"price":    12.99,
				},
			},
			"bicycle": map[string]interface{}{
				"color": "red",
				"price": 19.95,
			},
		},
		"nums": []interface{}{
			float64(0), float64(1), float64(2), float64(3), float64(4),
			float64(5), float64(6), float64(7), float64(8), float64(9),
		},
		"nothing": nil,
	}
}

func evalOn(t *testing.T, doc interface{}, expr string) (interface{}, bool, error) {
	t.Helper()
	path, err := parser.Parse(expr)
	require.NoError(t, err, "parse %q", expr)
	return New(doc, WithCaching(false)).Evaluate(path)
}

func evalOK(t *testing.T, doc interface{}, expr string) (interface{}, bool) {
	t.Helper()
	value, found, err := evalOn(t, doc, expr)
	require.NoError(t, err, "eval %q", expr)
	return value, found
}

func TestEvaluateProperty(t *testing.T) {
	doc := storeDoc()

	value, found := evalOK(t, doc, "$.store.bicycle.color")
	assert.True(t, found)
	assert.Equal(t, "red", value)

	// Implicit root is equivalent.
	value, found = evalOK(t, doc, "store.bicycle.color")
	assert.True(t, found)
	assert.Equal(t, "red", value)

	// Empty path yields the whole document.
	value, found = evalOK(t, doc, "$")
	assert.True(t, found)
	assert.Equal(t, doc, value)
}

func TestEvaluateAbsentVersusNull(t *testing.T) {
	doc := storeDoc()

	_, found := evalOK(t, doc, "$.store.missing")
	assert.False(t, found)

	// Missing intermediate short-circuits without error.
	_, found = evalOK(t, doc, "$.store.missing.deeper.still")
	assert.False(t, found)

	// Property access on a scalar is absent, not an error.
	_, found = evalOK(t, doc, "$.store.bicycle.color.x")
	assert.False(t, found)

	// Explicit null is present.
	value, found := evalOK(t, doc, "$.nothing")
	assert.True(t, found)
	assert.Nil(t, value)
}

func TestEvaluateIndex(t *testing.T) {
	doc := storeDoc()

	value, found := evalOK(t, doc, "$.nums[3]")
	assert.True(t, found)
	assert.Equal(t, float64(3), value)

	value, found = evalOK(t, doc, "$.nums[-1]")
	assert.True(t, found)
	assert.Equal(t, float64(9), value)

	_, found = evalOK(t, doc, "$.nums[100]")
	assert.False(t, found)

	_, found = evalOK(t, doc, "$.nums[-11]")
	assert.False(t, found)

	// Index on a non-array is absent.
	_, found = evalOK(t, doc, "$.store.bicycle[0]")
	assert.False(t, found)
}

func TestEvaluateWildcard(t *testing.T) {
	doc := storeDoc()

	value, found := evalOK(t, doc, "$.store.book[*].title")
	assert.True(t, found)
	assert.Equal(t, []interface{}{"Sayings of the Century", "Sword of Honour"}, value)

	// Object wildcard iterates in sorted key order.
	value, _ = evalOK(t, doc, "$.store.bicycle[*]")
	assert.Equal(t, []interface{}{"red", 19.95}, value)

	// Dot-star form is equivalent to the bracket form.
	value, _ = evalOK(t, doc, "$.store.bicycle.*")
	assert.Equal(t, []interface{}{"red", 19.95}, value)

	// Wildcard over a scalar yields an empty sequence.
	value, found = evalOK(t, doc, "$.nothing[*]")
	assert.True(t, found)
	assert.Equal(t, []interface{}{}, value)

	// Missing keys after a wildcard drop out instead of erroring.
	value, found = evalOK(t, doc, "$.store.book[*].isbn")
	assert.True(t, found)
	assert.Equal(t, []interface{}{}, value)
}

func TestEvaluateSlice(t *testing.T) {
	doc := storeDoc()

	tests := []struct {
		expr string
		want []interface{}
	}{
		{"$.nums[1:4]", []interface{}{float64(1), float64(2), float64(3)}},
		{"$.nums[:3]", []interface{}{float64(0), float64(1), float64(2)}},
		{"$.nums[7:]", []interface{}{float64(7), float64(8), float64(9)}},
		{"$.nums[::3]", []interface{}{float64(0), float64(3), float64(6), float64(9)}},
		{"$.nums[-3:]", []interface{}{float64(7), float64(8), float64(9)}},
		{"$.nums[1:100]", []interface{}{
			float64(1), float64(2), float64(3), float64(4),
			float64(5), float64(6), float64(7), float64(8), float64(9),
		}},
		{"$.nums[5:2]", []interface{}{}},
		{"$.nums[8:5:-1]", []interface{}{float64(8), float64(7), float64(6)}},
		{"$.nums[2::-1]", []interface{}{float64(2), float64(1), float64(0)}},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			value, found := evalOK(t, doc, tc.expr)
			assert.True(t, found)
			assert.Equal(t, tc.want, value)
		})
	}

	t.Run("reverse whole array", func(t *testing.T) {
		value, _ := evalOK(t, doc, "$.nums[::-1]")
		arr := value.([]interface{})
		require.Len(t, arr, 10)
		assert.Equal(t, float64(9), arr[0])
		assert.Equal(t, float64(0), arr[9])
	})

	t.Run("slice on non-array is empty", func(t *testing.T) {
		value, found := evalOK(t, doc, "$.store.bicycle[1:3]")
		assert.True(t, found)
		assert.Equal(t, []interface{}{}, value)
	})
}

func TestEvaluateRecursiveDescent(t *testing.T) {
	doc := storeDoc()

	value, found := evalOK(t, doc, "$..price")
	assert.True(t, found)
	// Pre-order with sorted object keys: bicycle before book, books in
	// array order.
	assert.Equal(t, []interface{}{19.95, 8.95, 12.99}, value)

	value, _ = evalOK(t, doc, "$..author")
	assert.Equal(t, []interface{}{"Nigel Rees", "Evelyn Waugh"}, value)

	value, found = evalOK(t, doc, "$..nonexistent")
	assert.True(t, found)
	assert.Equal(t, []interface{}{}, value)
}

func TestEvaluateRecursiveMatchStillDescends(t *testing.T) {
	doc := map[string]interface{}{
		"name": map[string]interface{}{
			"name": "inner",
		},
	}
	value, _ := evalOK(t, doc, "$..name")
	arr := value.([]interface{})
	require.Len(t, arr, 2)
	assert.Equal(t, map[string]interface{}{"name": "inner"}, arr[0])
	assert.Equal(t, "inner", arr[1])
}

func TestEvaluateUnnamedRecursive(t *testing.T) {
	doc := map[string]interface{}{
		"a": []interface{}{float64(1), float64(2)},
	}
	value, _ := evalOK(t, doc, "$..")
	// Collects the array itself, then each element.
	assert.Equal(t, []interface{}{
		[]interface{}{float64(1), float64(2)}, float64(1), float64(2),
	}, value)
}

func TestEvaluateMultiValuePropagation(t *testing.T) {
	doc := map[string]interface{}{
		"groups": []interface{}{
			map[string]interface{}{"members": []interface{}{"a", "b"}},
			map[string]interface{}{"members": []interface{}{"c"}},
			map[string]interface{}{"other": true},
		},
	}

	// A second multi segment flattens exactly one level.
	value, found := evalOK(t, doc, "$.groups[*].members[*]")
	assert.True(t, found)
	assert.Equal(t, []interface{}{"a", "b", "c"}, value)

	// Indexing distributes over the sequence.
	value, _ = evalOK(t, doc, "$.groups[*].members[0]")
	assert.Equal(t, []interface{}{"a", "c"}, value)
}

func TestEvaluateFilterSegment(t *testing.T) {
	doc := storeDoc()

	value, found := evalOK(t, doc, "$.store.book[?(@.price < 10)].title")
	assert.True(t, found)
	assert.Equal(t, []interface{}{"Sayings of the Century"}, value)

	value, _ = evalOK(t, doc, "$.store.book[?(@.category == 'fiction')]")
	arr := value.([]interface{})
	require.Len(t, arr, 1)
	assert.Equal(t, "Sword of Honour", arr[0].(map[string]interface{})["title"])

	// No matches is an empty sequence, not absent.
	value, found = evalOK(t, doc, "$.store.book[?(@.price > 100)]")
	assert.True(t, found)
	assert.Equal(t, []interface{}{}, value)
}

func TestEvaluateFilterOnNonArray(t *testing.T) {
	doc := storeDoc()
	_, _, err := evalOn(t, doc, "$.store.bicycle[?(@.price > 1)]")
	require.Error(t, err)
	var perr *types.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.ErrFilterOnNonArray, perr.Code)
	assert.True(t, types.IsEvaluationError(err))
}

func TestEvaluateNilPath(t *testing.T) {
	_, _, err := New(storeDoc()).Evaluate(nil)
	require.Error(t, err)
}
