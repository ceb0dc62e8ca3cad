package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mergeState struct {
	Article  string
	Insights string
	Items    []string
	Count    int
}

func testSchema() *Schema {
	return NewSchema().
		TakeLatest("Article").
		Concat("Insights").
		Append("Items")
}

func TestTakeLatestIsIdempotent(t *testing.T) {
	s := mergeState{Article: "v0"}
	u := Update{"Article": "v1"}

	once, err := applyUpdates(testSchema(), s, []Update{u})
	require.NoError(t, err)
	twice, err := applyUpdates(testSchema(), once, []Update{u})
	require.NoError(t, err)

	assert.Equal(t, "v1", once.Article)
	assert.Equal(t, once, twice)
}

func TestConcatAccumulates(t *testing.T) {
	s := mergeState{}
	out, err := applyUpdates(testSchema(), s, []Update{
		{"Insights": "第一段。"},
		{"Insights": "第二段。"},
	})
	require.NoError(t, err)
	// 拼接而不是覆盖：同一节点跑两次会累加文本。
	assert.Equal(t, "第一段。第二段。", out.Insights)
}

func TestAppendMergesAllBranches(t *testing.T) {
	s := mergeState{Items: []string{"a"}}
	out, err := applyUpdates(testSchema(), s, []Update{
		{"Items": []string{"b"}},
		{"Items": []string{"c", "d"}},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, out.Items)
	assert.Equal(t, "a", out.Items[0])
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	orig := []string{"a"}
	s := mergeState{Items: orig}
	_, err := applyUpdates(testSchema(), s, []Update{{"Items": []string{"b"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, orig)
}

func TestConflictingWritersWithoutReducer(t *testing.T) {
	s := mergeState{}
	_, err := applyUpdates(testSchema(), s, []Update{
		{"Count": 1},
		{"Count": 2},
	})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Count", ce.Field)
	assert.Equal(t, 2, ce.Writers)
}

func TestSingleWriterDefaultsToOverwrite(t *testing.T) {
	s := mergeState{Count: 1}
	out, err := applyUpdates(testSchema(), s, []Update{{"Count": 7}})
	require.NoError(t, err)
	assert.Equal(t, 7, out.Count)
}

func TestUnknownFieldRejected(t *testing.T) {
	s := mergeState{}
	_, err := applyUpdates(testSchema(), s, []Update{{"Nope": "x"}})
	assert.ErrorContains(t, err, "unknown state field")
}

func TestWrongTypeRejected(t *testing.T) {
	s := mergeState{}
	_, err := applyUpdates(testSchema(), s, []Update{{"Items": "not-a-slice"}})
	assert.Error(t, err)

	_, err = applyUpdates(testSchema(), s, []Update{{"Insights": 42}})
	assert.Error(t, err)
}

func TestSchemaValidation(t *testing.T) {
	noop := func(ctx context.Context, s mergeState) (Update, error) { return nil, nil }

	tests := []struct {
		name    string
		schema  *Schema
		wantErr string
	}{
		{"append on string field", NewSchema().Append("Insights"), "append reducer on non-slice"},
		{"concat on slice field", NewSchema().Concat("Items"), "concat reducer on non-string"},
		{"unknown field", NewSchema().TakeLatest("Missing"), "not found on state type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New[mergeState](tt.schema)
			g.AddNode("a", noop)
			g.SetEntryPoint("a")
			g.AddEdge("a", END)
			_, err := g.Compile()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
