package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runState struct {
	Sections []string
	Parts    []string
	Note     string
	Final    string
}

func runSchema() *Schema {
	return NewSchema().
		TakeLatest("Sections", "Final").
		Concat("Note").
		Append("Parts")
}

func appendNode(field, value string) func(context.Context, runState) (Update, error) {
	return func(ctx context.Context, s runState) (Update, error) {
		return Update{field: []string{value}}, nil
	}
}

func TestLinearRun(t *testing.T) {
	g := New[runState](runSchema())
	g.AddNode("a", func(ctx context.Context, s runState) (Update, error) {
		return Update{"Note": "a"}, nil
	})
	g.AddNode("b", func(ctx context.Context, s runState) (Update, error) {
		// b 必须看到 a 合并后的状态
		return Update{"Note": s.Note + "b"}, nil
	})
	g.SetEntryPoint("a")
	g.AddEdge("a", "b")
	g.AddEdge("b", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), runState{})
	require.NoError(t, err)
	assert.Equal(t, "aab", out.Note) // concat: "a" + ("a"+"b")
}

func TestFanOutJoinCompleteness(t *testing.T) {
	g := New[runState](runSchema())
	g.AddNode("outline", func(ctx context.Context, s runState) (Update, error) {
		return Update{"Sections": []string{"s1", "s2", "s3", "s4"}}, nil
	})
	g.AddTaskNode("worker", func(ctx context.Context, payload any) (Update, error) {
		id := payload.(string)
		// 打乱完成顺序
		if id == "s1" {
			time.Sleep(20 * time.Millisecond)
		}
		return Update{"Parts": []string{id}}, nil
	})
	g.AddNode("join", func(ctx context.Context, s runState) (Update, error) {
		return Update{"Final": fmt.Sprintf("%d", len(s.Parts))}, nil
	})
	g.SetEntryPoint("outline")
	g.AddFanOut("outline", "worker", func(ctx context.Context, s runState) ([]Send, error) {
		var sends []Send
		for _, sec := range s.Sections {
			sends = append(sends, Send{To: "worker", Payload: sec})
		}
		return sends, nil
	})
	g.AddEdge("worker", "join")
	g.AddEdge("join", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), runState{})
	require.NoError(t, err)
	// join 时每个分支恰好贡献一个结果，与完成顺序无关
	assert.ElementsMatch(t, []string{"s1", "s2", "s3", "s4"}, out.Parts)
	assert.Equal(t, "4", out.Final)
}

func TestZeroFanOutStillJoins(t *testing.T) {
	g := New[runState](runSchema())
	g.AddNode("outline", func(ctx context.Context, s runState) (Update, error) {
		return Update{}, nil
	})
	g.AddTaskNode("worker", func(ctx context.Context, payload any) (Update, error) {
		t.Error("worker should not run")
		return nil, nil
	})
	g.AddNode("join", func(ctx context.Context, s runState) (Update, error) {
		return Update{"Final": "done"}, nil
	})
	g.SetEntryPoint("outline")
	g.AddFanOut("outline", "worker", func(ctx context.Context, s runState) ([]Send, error) {
		return nil, nil
	})
	g.AddEdge("worker", "join")
	g.AddEdge("join", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), runState{})
	require.NoError(t, err)
	assert.Equal(t, "done", out.Final)
}

func TestJoinBarrierWaitsForAllBranches(t *testing.T) {
	g := New[runState](runSchema())
	g.AddNode("a", func(ctx context.Context, s runState) (Update, error) { return Update{}, nil })
	g.AddNode("slow", func(ctx context.Context, s runState) (Update, error) {
		time.Sleep(30 * time.Millisecond)
		return Update{"Parts": []string{"slow"}}, nil
	})
	g.AddNode("fast", appendNode("Parts", "fast"))

	var seen int
	g.AddNode("join", func(ctx context.Context, s runState) (Update, error) {
		seen = len(s.Parts)
		return Update{}, nil
	})
	g.SetEntryPoint("a")
	g.AddEdge("a", "slow")
	g.AddEdge("a", "fast")
	g.AddJoinEdge([]string{"slow", "fast"}, "join")
	g.AddEdge("join", END)

	app, err := g.Compile()
	require.NoError(t, err)
	_, err = app.Invoke(context.Background(), runState{})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestBranchesObserveForkSnapshot(t *testing.T) {
	g := New[runState](runSchema())
	g.AddNode("a", func(ctx context.Context, s runState) (Update, error) {
		return Update{"Note": "base"}, nil
	})
	var b1Saw, b2Saw string
	g.AddNode("b1", func(ctx context.Context, s runState) (Update, error) {
		b1Saw = s.Note
		return Update{"Parts": []string{"b1"}}, nil
	})
	g.AddNode("b2", func(ctx context.Context, s runState) (Update, error) {
		time.Sleep(10 * time.Millisecond)
		b2Saw = s.Note // 不能看到 b1 的任何写入
		return Update{"Parts": []string{"b2"}}, nil
	})
	g.AddNode("join", func(ctx context.Context, s runState) (Update, error) { return Update{}, nil })
	g.SetEntryPoint("a")
	g.AddEdge("a", "b1")
	g.AddEdge("a", "b2")
	g.AddJoinEdge([]string{"b1", "b2"}, "join")
	g.AddEdge("join", END)

	app, err := g.Compile()
	require.NoError(t, err)
	_, err = app.Invoke(context.Background(), runState{})
	require.NoError(t, err)
	assert.Equal(t, "base", b1Saw)
	assert.Equal(t, "base", b2Saw)
}

func TestNodeFailureAbortsRunAndCancelsSiblings(t *testing.T) {
	boom := errors.New("boom")
	siblingCanceled := make(chan struct{})

	g := New[runState](runSchema())
	g.AddNode("a", func(ctx context.Context, s runState) (Update, error) { return Update{}, nil })
	g.AddNode("bad", func(ctx context.Context, s runState) (Update, error) {
		return nil, boom
	})
	g.AddNode("sibling", func(ctx context.Context, s runState) (Update, error) {
		select {
		case <-ctx.Done():
			close(siblingCanceled)
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return Update{"Parts": []string{"sibling"}}, nil
		}
	})
	g.AddNode("join", func(ctx context.Context, s runState) (Update, error) { return Update{}, nil })
	g.SetEntryPoint("a")
	g.AddEdge("a", "bad")
	g.AddEdge("a", "sibling")
	g.AddJoinEdge([]string{"bad", "sibling"}, "join")
	g.AddEdge("join", END)

	app, err := g.Compile()
	require.NoError(t, err)

	start := time.Now()
	out, err := app.Invoke(context.Background(), runState{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "siblings must be canceled promptly")

	var ne *NodeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "bad", ne.Node)
	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, ne.State)

	select {
	case <-siblingCanceled:
	case <-time.After(time.Second):
		t.Fatal("sibling never observed cancellation")
	}
	// 失败分支的同批结果整体丢弃
	assert.Empty(t, out.Parts)
}

func TestConflictingParallelWritesFailTheRun(t *testing.T) {
	g := New[runState](runSchema())
	g.AddNode("a", func(ctx context.Context, s runState) (Update, error) { return Update{}, nil })
	g.AddNode("w1", func(ctx context.Context, s runState) (Update, error) {
		return Update{"Final": "one"}, nil
	})
	g.AddNode("w2", func(ctx context.Context, s runState) (Update, error) {
		return Update{"Final": "two"}, nil
	})
	g.AddNode("join", func(ctx context.Context, s runState) (Update, error) { return Update{}, nil })
	g.SetEntryPoint("a")
	g.AddEdge("a", "w1")
	g.AddEdge("a", "w2")
	g.AddJoinEdge([]string{"w1", "w2"}, "join")
	g.AddEdge("join", END)

	// Final 声明了 take-latest，不冲突；换一个未声明的字段验证冲突路径。
	app, err := g.Compile()
	require.NoError(t, err)
	_, err = app.Invoke(context.Background(), runState{})
	require.NoError(t, err)

	g2 := New[runState](NewSchema().Append("Parts"))
	g2.AddNode("a", func(ctx context.Context, s runState) (Update, error) { return Update{}, nil })
	g2.AddNode("w1", func(ctx context.Context, s runState) (Update, error) {
		return Update{"Note": "one"}, nil
	})
	g2.AddNode("w2", func(ctx context.Context, s runState) (Update, error) {
		return Update{"Note": "two"}, nil
	})
	g2.AddNode("join", func(ctx context.Context, s runState) (Update, error) { return Update{}, nil })
	g2.SetEntryPoint("a")
	g2.AddEdge("a", "w1")
	g2.AddEdge("a", "w2")
	g2.AddJoinEdge([]string{"w1", "w2"}, "join")
	g2.AddEdge("join", END)

	app2, err := g2.Compile()
	require.NoError(t, err)
	_, err = app2.Invoke(context.Background(), runState{})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Note", ce.Field)
}

func TestCompileErrors(t *testing.T) {
	noop := func(ctx context.Context, s runState) (Update, error) { return nil, nil }

	t.Run("no entry point", func(t *testing.T) {
		g := New[runState](runSchema())
		g.AddNode("a", noop)
		g.AddEdge("a", END)
		_, err := g.Compile()
		assert.ErrorContains(t, err, "entry point not set")
	})

	t.Run("edge to unknown node", func(t *testing.T) {
		g := New[runState](runSchema())
		g.AddNode("a", noop)
		g.SetEntryPoint("a")
		g.AddEdge("a", "ghost")
		g.AddEdge("a", END)
		_, err := g.Compile()
		assert.ErrorContains(t, err, "unknown node")
	})

	t.Run("no edge into END", func(t *testing.T) {
		g := New[runState](runSchema())
		g.AddNode("a", noop)
		g.SetEntryPoint("a")
		_, err := g.Compile()
		assert.ErrorContains(t, err, "no edge into END")
	})

	t.Run("task node without fan-out", func(t *testing.T) {
		g := New[runState](runSchema())
		g.AddNode("a", noop)
		g.AddTaskNode("w", func(ctx context.Context, payload any) (Update, error) { return nil, nil })
		g.SetEntryPoint("a")
		g.AddEdge("a", END)
		_, err := g.Compile()
		assert.ErrorContains(t, err, "no fan-out edge")
	})

	t.Run("duplicate node", func(t *testing.T) {
		g := New[runState](runSchema())
		g.AddNode("a", noop)
		g.AddNode("a", noop)
		g.SetEntryPoint("a")
		g.AddEdge("a", END)
		_, err := g.Compile()
		assert.ErrorContains(t, err, "duplicate node")
	})
}

func TestDOTRendersTopology(t *testing.T) {
	g := New[runState](runSchema())
	g.AddNode("outline", func(ctx context.Context, s runState) (Update, error) { return nil, nil })
	g.AddTaskNode("worker", func(ctx context.Context, payload any) (Update, error) { return nil, nil })
	g.AddNode("join", func(ctx context.Context, s runState) (Update, error) { return nil, nil })
	g.SetEntryPoint("outline")
	g.AddFanOut("outline", "worker", func(ctx context.Context, s runState) ([]Send, error) { return nil, nil })
	g.AddEdge("worker", "join")
	g.AddEdge("join", END)

	app, err := g.Compile()
	require.NoError(t, err)

	dot := app.DOT()
	assert.True(t, strings.HasPrefix(dot, "digraph workflow"))
	assert.Contains(t, dot, `"outline" -> "worker" [style=dashed,label="fan-out"]`)
	assert.Contains(t, dot, `"join" -> "__end__"`)
}
