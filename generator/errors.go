package generator

import (
	"fmt"
	"strings"
)

// ModelInvocationError 表示文本生成能力本身失败（网络、鉴权、配额、超时）。
// 引擎不做重试；ctx 超时可通过 errors.Is(err, context.DeadlineExceeded) 识别。
type ModelInvocationError struct {
	Provider string
	Err      error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model invocation failed (provider=%s): %v", e.Provider, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// OutlineParseError 表示去掉代码围栏后仍无法解析为 JSON 大纲。
type OutlineParseError struct {
	Raw string
	Err error
}

func (e *OutlineParseError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "…"
	}
	return fmt.Sprintf("outline is not valid JSON: %v (raw: %s)", e.Err, raw)
}

func (e *OutlineParseError) Unwrap() error { return e.Err }

// OutlineSchemaError 表示大纲 JSON 缺少必需字段或结构不完整。
type OutlineSchemaError struct {
	Reason string
}

func (e *OutlineSchemaError) Error() string {
	return "outline schema violation: " + e.Reason
}

// DuplicateNodeIDError 表示大纲中出现重复的 node_id。
type DuplicateNodeIDError struct {
	NodeID string
}

func (e *DuplicateNodeIDError) Error() string {
	return fmt.Sprintf("outline contains duplicate node_id %q", e.NodeID)
}

// AssemblyConsistencyError 表示汇合时 Paragraphs 的 node_id 集合
// 与 Outline.Children 不一致（有缺失或有多余）。
type AssemblyConsistencyError struct {
	Missing []string // 大纲里有、段落里没有
	Unknown []string // 段落里有、大纲里没有
}

func (e *AssemblyConsistencyError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing paragraphs for "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "paragraphs with unknown node_id "+strings.Join(e.Unknown, ", "))
	}
	return "paragraphs do not match outline: " + strings.Join(parts, "; ")
}
