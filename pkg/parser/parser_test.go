package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treedoc/pathquery/pkg/types"
)

func parseOK(t *testing.T, input string) *types.Path {
	t.Helper()
	path, err := Parse(input)
	require.NoError(t, err, "input %q", input)
	return path
}

func parseErrCode(t *testing.T, input string) types.ErrorCode {
	t.Helper()
	_, err := Parse(input)
	require.Error(t, err, "input %q", input)
	var perr *types.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.KindParse, perr.Kind)
	return perr.Code
}

func TestParseSegmentKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []types.NodeKind
	}{
		{"empty path", "", nil},
		{"root only", "$", []types.NodeKind{types.NodeRoot}},
		{"root property", "$.a", []types.NodeKind{types.NodeRoot, types.NodeProperty}},
		{"bare property chain", "a.b.c", []types.NodeKind{types.NodeProperty, types.NodeProperty, types.NodeProperty}},
		{"index", "$.a[0]", []types.NodeKind{types.NodeRoot, types.NodeProperty, types.NodeIndex}},
		{"negative index", "$.a[-1]", []types.NodeKind{types.NodeRoot, types.NodeProperty, types.NodeIndex}},
		{"bracket wildcard", "$.a[*]", []types.NodeKind{types.NodeRoot, types.NodeProperty, types.NodeWildcard}},
		{"dot wildcard", "$.a.*", []types.NodeKind{types.NodeRoot, types.NodeProperty, types.NodeWildcard}},
		{"leading wildcard", "*", []types.NodeKind{types.NodeWildcard}},
		{"slice", "$.a[1:3]", []types.NodeKind{types.NodeRoot, types.NodeProperty, types.NodeSlice}},
		{"named recursive", "$..id", []types.NodeKind{types.NodeRoot, types.NodeRecursive}},
		{"unnamed recursive", "$..", []types.NodeKind{types.NodeRoot, types.NodeRecursive}},
		{"filter", "$.a[?(@.x == 1)]", []types.NodeKind{types.NodeRoot, types.NodeProperty, types.NodeFilter}},
		{"recursive then index", "$..items[0]", []types.NodeKind{types.NodeRoot, types.NodeRecursive, types.NodeIndex}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := parseOK(t, tc.input)
			var kinds []types.NodeKind
			for _, n := range path.Nodes {
				kinds = append(kinds, n.Kind)
			}
			assert.Equal(t, tc.kinds, kinds)
			assert.Equal(t, tc.input, path.Source())
		})
	}
}

func TestParseIndexValues(t *testing.T) {
	path := parseOK(t, "$.a[5]")
	require.Len(t, path.Nodes, 3)
	assert.Equal(t, 5, path.Nodes[2].Index)

	path = parseOK(t, "$.a[-2]")
	assert.Equal(t, -2, path.Nodes[2].Index)
}

func TestParseSliceParts(t *testing.T) {
	intp := func(n int) *int { return &n }

	tests := []struct {
		name             string
		input            string
		start, end, step *int
	}{
		{"full slice", "$.a[1:5:2]", intp(1), intp(5), intp(2)},
		{"start and end", "$.a[1:5]", intp(1), intp(5), nil},
		{"start only", "$.a[2:]", intp(2), nil, nil},
		{"end only", "$.a[:3]", nil, intp(3), nil},
		{"empty slice", "$.a[:]", nil, nil, nil},
		{"step only", "$.a[::2]", nil, nil, intp(2)},
		{"negative step", "$.a[::-1]", nil, nil, intp(-1)},
		{"negative bounds", "$.a[-3:-1]", intp(-3), intp(-1), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := parseOK(t, tc.input)
			node := path.Nodes[len(path.Nodes)-1]
			require.Equal(t, types.NodeSlice, node.Kind)
			assert.Equal(t, tc.start, node.Start)
			assert.Equal(t, tc.end, node.End)
			assert.Equal(t, tc.step, node.Step)
		})
	}
}

func TestParseRecursiveName(t *testing.T) {
	path := parseOK(t, "$..author")
	require.Len(t, path.Nodes, 2)
	assert.Equal(t, "author", path.Nodes[1].Name)

	path = parseOK(t, "$..")
	assert.Equal(t, "", path.Nodes[1].Name)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  types.ErrorCode
	}{
		{"empty property after dot", "$.a.", types.ErrEmptyProperty},
		{"dot then bracket", "$.a.[0]", types.ErrEmptyProperty},
		{"unterminated bracket", "$.a[0", types.ErrBracketNotClosed},
		{"unterminated empty bracket", "$.a[", types.ErrBracketNotClosed},
		{"unterminated slice", "$.a[1:2", types.ErrBracketNotClosed},
		{"non-integer index", "$.a[1.5]", types.ErrExpectedIndex},
		{"string index", "$.a['x']", types.ErrExpectedIndex},
		{"slice step zero", "$.a[::0]", types.ErrSliceStepZero},
		{"root mid-path", "$.a.$", types.ErrEmptyProperty},
		{"root after segment", "$.a[0]$", types.ErrRootPosition},
		{"double root", "$ $", types.ErrRootPosition},
		{"unterminated string", "$.a['x", types.ErrStringNotClosed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, parseErrCode(t, tc.input))
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("$.items[::0]")
	require.Error(t, err)
	var perr *types.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, types.ErrSliceStepZero, perr.Code)
	assert.Equal(t, 10, perr.Position)
}

func TestMustParsePanics(t *testing.T) {
	assert.NotPanics(t, func() { MustParse("$.a.b") })
	assert.Panics(t, func() { MustParse("$.a[") })
}
