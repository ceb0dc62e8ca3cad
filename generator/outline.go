package generator

import (
	"encoding/json"
	"strconv"
	"strings"
)

// stripJSONMarkers 去掉模型习惯性包裹的 Markdown 代码围栏（```json ... ```）。
// 没有围栏的输入原样返回（仅去除首尾空白）。
func stripJSONMarkers(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(s[:len(s)-3])
	}
	return s
}

// parseOutline 把模型回复解析为大纲并做结构校验。
// 失败类型：OutlineParseError（非法 JSON）、OutlineSchemaError（缺必需字段）、
// DuplicateNodeIDError（node_id 重复）。
func parseOutline(raw string) (Outline, error) {
	stripped := stripJSONMarkers(raw)

	var o Outline
	if err := json.Unmarshal([]byte(stripped), &o); err != nil {
		return Outline{}, &OutlineParseError{Raw: stripped, Err: err}
	}
	if err := validateOutline(o); err != nil {
		return Outline{}, err
	}
	return o, nil
}

func validateOutline(o Outline) error {
	if strings.TrimSpace(o.Title) == "" {
		return &OutlineSchemaError{Reason: "missing title"}
	}
	if len(o.Children) == 0 {
		return &OutlineSchemaError{Reason: "outline has no children"}
	}
	seen := make(map[string]bool, len(o.Children))
	for i, c := range o.Children {
		if strings.TrimSpace(c.NodeID) == "" {
			return &OutlineSchemaError{Reason: "child " + strconv.Itoa(i) + " missing node_id"}
		}
		if strings.TrimSpace(c.Title) == "" {
			return &OutlineSchemaError{Reason: "child " + c.NodeID + " missing title"}
		}
		if seen[c.NodeID] {
			return &DuplicateNodeIDError{NodeID: c.NodeID}
		}
		seen[c.NodeID] = true
	}
	return nil
}
