package models

import "encoding/json"

// Optional поле частичного обновления: Set=false означает "не менять".
// Для nullable колонок используется Optional[*T], где Value=nil очищает значение.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some возвращает заданное значение
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON вызывается только для присутствующих ключей, включая явный null
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	return json.Unmarshal(data, &o.Value)
}
