package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record запись поставщика в исходном виде
type Record map[string]interface{}

// Lookup проходит по пути вида "a.b.0.c". Числовой сегмент индексирует массив.
func (r Record) Lookup(path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	var current interface{} = map[string]interface{}(r)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case Record:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

// BaseRecord запись списочного эндпоинта с нормализованным ключом соединения
type BaseRecord struct {
	ID     string
	Fields Record
}

// IDString приводит идентификатор поставщика к строке.
// Числа форматируются без экспоненты и дробной части.
func IDString(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return ""
}
