package graph

import (
	"context"
	"fmt"
)

const defaultMaxSteps = 64

// Runnable 是编译后的工作流图。跨运行无共享可变状态，可以被并发复用。
type Runnable[S any] struct {
	schema   *Schema
	nodes    map[string]NodeFunc[S]
	tasks    map[string]TaskFunc
	edges    map[string][]string
	preds    map[string][]string
	fanouts  map[string]FanOutFunc[S]
	entry    string
	maxSteps int
}

// WithMaxSteps 限制 superstep 的数量，防止图中有环时无限执行。
func (r *Runnable[S]) WithMaxSteps(n int) *Runnable[S] {
	if n > 0 {
		r.maxSteps = n
	}
	return r
}

// runTask 是一个待执行的节点实例；fan-out 出来的实例带独立载荷。
type runTask struct {
	node    string
	payload any
	isTask  bool
}

type taskResult struct {
	node   string
	update Update
	err    error
}

// Invoke 以 superstep 方式执行图直到终态：
// 每一步并发执行当前就绪的全部节点，结果经 Schema 在步末合并；
// 任一节点失败则取消同批兄弟分支、丢弃其结果并终止整次运行。
func (r *Runnable[S]) Invoke(ctx context.Context, initial S) (S, error) {
	state := initial
	completed := map[string]bool{}
	scheduled := map[string]bool{r.entry: true}
	frontier := []runTask{{node: r.entry}}

	for step := 0; len(frontier) > 0; step++ {
		if step >= r.maxSteps {
			return state, ErrMaxStepsExceeded
		}

		updates, err := r.runSuperstep(ctx, state, frontier)
		if err != nil {
			return state, err
		}

		state, err = applyUpdates(r.schema, state, updates)
		if err != nil {
			return state, err
		}

		for _, t := range frontier {
			completed[t.node] = true
		}

		frontier, err = r.nextFrontier(ctx, state, completed, scheduled)
		if err != nil {
			return state, err
		}
	}
	return state, nil
}

// nextFrontier 收集所有前驱已全部完成且尚未调度的节点。
// 零实例的 fan-out 直接视为完成，因此用 fixpoint 循环直到无新增。
func (r *Runnable[S]) nextFrontier(ctx context.Context, state S, completed, scheduled map[string]bool) ([]runTask, error) {
	var frontier []runTask
	for changed := true; changed; {
		changed = false
		for _, name := range r.nodeNames() {
			if scheduled[name] || !r.eligible(name, completed) {
				continue
			}
			scheduled[name] = true
			changed = true

			if dispatch, ok := r.fanouts[name]; ok {
				sends, err := dispatch(ctx, state)
				if err != nil {
					return nil, &NodeError{Node: name, Err: err, State: stateExcerpt(state)}
				}
				if len(sends) == 0 {
					completed[name] = true
					continue
				}
				for _, s := range sends {
					if s.To != name {
						return nil, &NodeError{Node: name, Err: fmt.Errorf("graph: send targets %q, expected %q", s.To, name)}
					}
					frontier = append(frontier, runTask{node: name, payload: s.Payload, isTask: true})
				}
				continue
			}
			frontier = append(frontier, runTask{node: name})
		}
	}
	return frontier, nil
}

func (r *Runnable[S]) eligible(name string, completed map[string]bool) bool {
	preds := r.preds[name]
	if len(preds) == 0 {
		return false // 只有 entry 没有前驱，它在启动时已调度
	}
	for _, p := range preds {
		if !completed[p] {
			return false
		}
	}
	return true
}

func (r *Runnable[S]) runSuperstep(ctx context.Context, state S, tasks []runTask) ([]Update, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan taskResult, len(tasks))
	for _, t := range tasks {
		go func(t runTask) {
			var u Update
			var err error
			if t.isTask {
				u, err = r.tasks[t.node](runCtx, t.payload)
			} else {
				u, err = r.nodes[t.node](runCtx, state)
			}
			results <- taskResult{node: t.node, update: u, err: err}
		}(t)
	}

	var updates []Update
	var firstErr *NodeError
	for range tasks {
		res := <-results
		if res.err != nil {
			if firstErr == nil {
				firstErr = &NodeError{Node: res.node, Err: res.err, State: stateExcerpt(state)}
				cancel() // 兄弟分支尽快退出，结果一律丢弃
			}
			continue
		}
		if firstErr == nil && res.update != nil {
			updates = append(updates, res.update)
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return updates, nil
}

func (r *Runnable[S]) nodeNames() []string {
	names := make([]string, 0, len(r.nodes)+len(r.tasks))
	for n := range r.nodes {
		names = append(names, n)
	}
	for n := range r.tasks {
		names = append(names, n)
	}
	return names
}

const excerptLimit = 600

func stateExcerpt[S any](state S) string {
	s := fmt.Sprintf("%+v", state)
	runes := []rune(s)
	if len(runes) <= excerptLimit {
		return s
	}
	return string(runes[:excerptLimit]) + "…"
}
