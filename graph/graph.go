package graph

import (
	"context"
	"fmt"
	"reflect"
)

// START / END 是图的虚拟入口与出口节点。
const (
	START = "__start__"
	END   = "__end__"
)

// NodeFunc 是一个读取共享状态快照并返回部分更新的节点。
type NodeFunc[S any] func(ctx context.Context, state S) (Update, error)

// TaskFunc 是 fan-out 的目标节点：它拿到的不是共享状态，
// 而是 dispatcher 切出来的独立载荷，分支之间没有任何共享可变数据。
type TaskFunc func(ctx context.Context, payload any) (Update, error)

// Send 描述一个动态生成的子任务：投递到哪个任务节点、携带什么载荷。
type Send struct {
	To      string
	Payload any
}

// FanOutFunc 根据上游产出把一条边展开为任意多个并行子任务，自身不做模型调用。
type FanOutFunc[S any] func(ctx context.Context, state S) ([]Send, error)

// StateGraph 按名字组织节点和有向边，Compile 后得到可执行的 Runnable。
// 构建期的错误被记录下来，统一在 Compile 时返回。
type StateGraph[S any] struct {
	schema   *Schema
	nodes    map[string]NodeFunc[S]
	tasks    map[string]TaskFunc
	edges    map[string][]string
	preds    map[string][]string
	fanouts  map[string]FanOutFunc[S] // 以目标任务节点为 key
	entry    string
	hasToEnd bool
	err      error
}

func New[S any](schema *Schema) *StateGraph[S] {
	if schema == nil {
		schema = NewSchema()
	}
	return &StateGraph[S]{
		schema:  schema,
		nodes:   make(map[string]NodeFunc[S]),
		tasks:   make(map[string]TaskFunc),
		edges:   make(map[string][]string),
		preds:   make(map[string][]string),
		fanouts: make(map[string]FanOutFunc[S]),
	}
}

func (g *StateGraph[S]) setErr(err error) {
	if g.err == nil {
		g.err = err
	}
}

// AddNode 注册一个普通状态节点。
func (g *StateGraph[S]) AddNode(name string, fn NodeFunc[S]) {
	if name == START || name == END {
		g.setErr(fmt.Errorf("graph: %q is a reserved node name", name))
		return
	}
	if g.exists(name) {
		g.setErr(fmt.Errorf("graph: duplicate node %q", name))
		return
	}
	if fn == nil {
		g.setErr(fmt.Errorf("graph: node %q has nil func", name))
		return
	}
	g.nodes[name] = fn
}

// AddTaskNode 注册一个只能作为 fan-out 目标的任务节点。
func (g *StateGraph[S]) AddTaskNode(name string, fn TaskFunc) {
	if g.exists(name) {
		g.setErr(fmt.Errorf("graph: duplicate node %q", name))
		return
	}
	if fn == nil {
		g.setErr(fmt.Errorf("graph: task node %q has nil func", name))
		return
	}
	g.tasks[name] = fn
}

func (g *StateGraph[S]) exists(name string) bool {
	if _, ok := g.nodes[name]; ok {
		return true
	}
	_, ok := g.tasks[name]
	return ok
}

// AddEdge 添加无条件边 from -> to；from 完成后 to 才可能就绪。
// 一个节点的全部前驱完成后它才就绪，因此多入边天然构成 join barrier。
func (g *StateGraph[S]) AddEdge(from, to string) {
	if from == START {
		if g.entry != "" {
			g.setErr(fmt.Errorf("graph: entry point already set to %q", g.entry))
			return
		}
		g.entry = to
		return
	}
	if to == END {
		g.hasToEnd = true
	}
	g.edges[from] = append(g.edges[from], to)
	if to != END {
		g.preds[to] = append(g.preds[to], from)
	}
}

// AddJoinEdge 让 to 等待 froms 中的全部节点完成（barrier 同步）。
func (g *StateGraph[S]) AddJoinEdge(froms []string, to string) {
	for _, from := range froms {
		g.AddEdge(from, to)
	}
}

// AddFanOut 添加动态扇出边：from 完成后调用 fn，对返回的每个 Send
// 生成一个 to 任务实例；实例个数在运行期才确定，可以为零。
func (g *StateGraph[S]) AddFanOut(from, to string, fn FanOutFunc[S]) {
	if fn == nil {
		g.setErr(fmt.Errorf("graph: fan-out %s -> %s has nil dispatcher", from, to))
		return
	}
	if _, ok := g.fanouts[to]; ok {
		g.setErr(fmt.Errorf("graph: task node %q already has a fan-out edge", to))
		return
	}
	g.fanouts[to] = fn
	g.edges[from] = append(g.edges[from], to)
	g.preds[to] = append(g.preds[to], from)
}

// SetEntryPoint 等价于 AddEdge(START, name)。
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.AddEdge(START, name)
}

// Compile 校验拓扑与 schema，返回可执行图。
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.entry == "" {
		return nil, fmt.Errorf("graph: entry point not set")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("graph: entry point %q is not a registered node", g.entry)
	}
	if !g.hasToEnd {
		return nil, fmt.Errorf("graph: no edge into END")
	}
	for from, tos := range g.edges {
		if !g.exists(from) {
			return nil, fmt.Errorf("graph: edge from unknown node %q", from)
		}
		for _, to := range tos {
			if to == END {
				continue
			}
			if !g.exists(to) {
				return nil, fmt.Errorf("graph: edge %s -> %s targets unknown node", from, to)
			}
		}
	}
	for name := range g.tasks {
		if _, ok := g.fanouts[name]; !ok {
			return nil, fmt.Errorf("graph: task node %q has no fan-out edge", name)
		}
	}
	for to := range g.fanouts {
		if _, ok := g.tasks[to]; !ok {
			return nil, fmt.Errorf("graph: fan-out target %q is not a task node", to)
		}
	}

	var zero S
	if err := g.schema.validate(reflect.TypeOf(zero)); err != nil {
		return nil, err
	}

	return &Runnable[S]{
		schema:   g.schema,
		nodes:    g.nodes,
		tasks:    g.tasks,
		edges:    g.edges,
		preds:    g.preds,
		fanouts:  g.fanouts,
		entry:    g.entry,
		maxSteps: defaultMaxSteps,
	}, nil
}
