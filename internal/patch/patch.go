// Package patch 提供三态字段（缺省 / null / 有值），用于部分更新请求。
package patch

import (
	"bytes"
	"encoding/json"
)

// Field 记录 JSON 字段是否出现、是否显式为 null 以及解析后的值。
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON 仅在字段出现在请求体时被调用，因此 Set 可以区分缺省与零值。
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON 输出值或 null；缺省字段需配合 omitempty 以外的逻辑自行跳过。
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Present 表示字段出现且不为 null。
func (f Field[T]) Present() bool {
	return f.Set && !f.Null
}

// Ptr 返回值的指针；缺省或 null 时返回 nil。
func (f Field[T]) Ptr() *T {
	if !f.Present() {
		return nil
	}
	v := f.Value
	return &v
}

// Value 构造一个带值的字段。
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null 构造一个显式置空的字段。
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// FromPtr 将可空指针转换为字段：nil 视为置空。
func FromPtr[T any](v *T) Field[T] {
	if v == nil {
		return Null[T]()
	}
	return Value(*v)
}
