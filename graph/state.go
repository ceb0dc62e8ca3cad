package graph

import (
	"fmt"
	"reflect"
)

// Update 是节点返回的部分状态更新，key 为状态结构体的字段名。
// 节点只应写入自己声明的字段，合并动作由 Schema 决定。
type Update map[string]any

type reducerKind int

const (
	reduceOverwrite reducerKind = iota
	reduceTakeLatest
	reduceAppend
	reduceConcat
)

// Schema 是 reducer 注册表：为每个状态字段声明并发写入时的合并策略。
// 未声明的字段默认 overwrite（仅允许单写者，见 ConflictError）。
type Schema struct {
	kinds map[string]reducerKind
}

func NewSchema() *Schema {
	return &Schema{kinds: make(map[string]reducerKind)}
}

// TakeLatest 声明 merge(a, b) = b，适用于单一逻辑写者外加整体重写的字段。
func (s *Schema) TakeLatest(fields ...string) *Schema {
	for _, f := range fields {
		s.kinds[f] = reduceTakeLatest
	}
	return s
}

// Append 声明切片字段按 merge(a, b) = a ++ b 合并。
func (s *Schema) Append(fields ...string) *Schema {
	for _, f := range fields {
		s.kinds[f] = reduceAppend
	}
	return s
}

// Concat 声明字符串字段按 merge(a, b) = a + b 合并。
// 注意：同一节点被调用两次会累加文本而不是替换，这是有意为之。
func (s *Schema) Concat(fields ...string) *Schema {
	for _, f := range fields {
		s.kinds[f] = reduceConcat
	}
	return s
}

// validate 检查注册的字段名在状态类型 S 上确实存在且策略与类型匹配。
func (s *Schema) validate(st reflect.Type) error {
	if st.Kind() != reflect.Struct {
		return fmt.Errorf("graph: state type %s is not a struct", st)
	}
	for f, kind := range s.kinds {
		sf, ok := st.FieldByName(f)
		if !ok {
			return fmt.Errorf("graph: schema field %q not found on state type %s", f, st)
		}
		switch kind {
		case reduceAppend:
			if sf.Type.Kind() != reflect.Slice {
				return fmt.Errorf("graph: append reducer on non-slice field %q (%s)", f, sf.Type)
			}
		case reduceConcat:
			if sf.Type.Kind() != reflect.String {
				return fmt.Errorf("graph: concat reducer on non-string field %q (%s)", f, sf.Type)
			}
		}
	}
	return nil
}

// applyUpdates 把一个 superstep 的全部更新合并进状态快照，返回新的快照。
// 输入的 state 不会被原地修改，分支之间的隔离依赖这一点。
func applyUpdates[S any](schema *Schema, state S, updates []Update) (S, error) {
	out := state
	rv := reflect.ValueOf(&out).Elem()
	if rv.Kind() != reflect.Struct {
		return out, fmt.Errorf("graph: state type %T is not a struct", state)
	}

	writers := make(map[string]int)
	for _, u := range updates {
		for f := range u {
			writers[f]++
		}
	}
	for f, n := range writers {
		if n > 1 {
			if _, ok := schema.kinds[f]; !ok {
				return out, &ConflictError{Field: f, Writers: n}
			}
		}
	}

	for _, u := range updates {
		for f, v := range u {
			fv := rv.FieldByName(f)
			if !fv.IsValid() {
				return out, fmt.Errorf("graph: update targets unknown state field %q", f)
			}
			if v == nil {
				return out, fmt.Errorf("graph: nil update value for field %q", f)
			}
			iv := reflect.ValueOf(v)
			merged, err := mergeField(schema.kinds[f], f, fv, iv)
			if err != nil {
				return out, err
			}
			fv.Set(merged)
		}
	}
	return out, nil
}

func mergeField(kind reducerKind, name string, cur, in reflect.Value) (reflect.Value, error) {
	switch kind {
	case reduceAppend:
		if in.Kind() != reflect.Slice || in.Type() != cur.Type() {
			return cur, fmt.Errorf("graph: append to field %q expects %s, got %s", name, cur.Type(), in.Type())
		}
		// 在副本上追加，避免共享底层数组被并发分支观察到。
		merged := reflect.MakeSlice(cur.Type(), 0, cur.Len()+in.Len())
		merged = reflect.AppendSlice(merged, cur)
		merged = reflect.AppendSlice(merged, in)
		return merged, nil
	case reduceConcat:
		if in.Kind() != reflect.String {
			return cur, fmt.Errorf("graph: concat to field %q expects string, got %s", name, in.Type())
		}
		return reflect.ValueOf(cur.String() + in.String()).Convert(cur.Type()), nil
	default: // overwrite 与 take-latest 都取后者
		if !in.Type().AssignableTo(cur.Type()) {
			return cur, fmt.Errorf("graph: cannot assign %s to field %q (%s)", in.Type(), name, cur.Type())
		}
		return in, nil
	}
}
