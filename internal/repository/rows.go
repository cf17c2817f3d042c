package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Rows строки результата одного запроса в виде JSON-объектов
type Rows []json.RawMessage

// Decode раскладывает строки в срез структур (dest: указатель на срез)
func (r Rows) Decode(dest any) error {
	raw := []json.RawMessage(r)
	if raw == nil {
		raw = []json.RawMessage{}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode rows: %w", err)
	}
	return nil
}

// Statement один SQL-запрос пакета
type Statement struct {
	SQL    string
	Params []any
}

func stmt(sql string, params ...any) Statement {
	return Statement{SQL: sql, Params: params}
}

// sqlBool принимает 0/1 и true/false
type sqlBool bool

func (b *sqlBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid boolean %s", data)
		}
		*b = n != 0
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Время хранится как миллисекунды Unix в UTC
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func millisPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func timePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

// strPtr превращает *string в значение параметра (nil → NULL)
func strPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
