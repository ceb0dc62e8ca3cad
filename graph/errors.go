package graph

import (
	"errors"
	"fmt"
)

// ErrMaxStepsExceeded 表示图执行超过了允许的最大 superstep 数（通常意味着图中有环）。
var ErrMaxStepsExceeded = errors.New("graph: max supersteps exceeded")

// NodeError 携带失败节点的名称、原始错误以及出错时的状态摘要。
// 任一节点失败都会导致整次运行失败，NodeError 即运行的终态错误。
type NodeError struct {
	Node  string
	Err   error
	State string
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("graph: node %q failed: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// ConflictError 表示同一个 superstep 内有多个分支写入了未注册 reducer 的字段。
// 默认的 overwrite 策略只允许单写者；并发双写必须显式声明合并方式。
type ConflictError struct {
	Field   string
	Writers int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("graph: field %q written by %d concurrent branches without a reducer", e.Field, e.Writers)
}
