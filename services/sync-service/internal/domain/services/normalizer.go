package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/schema"
)

// Normalizer превращает объединённую запись в строку фиксированной длины
type Normalizer struct {
	logger interfaces.LoggerPort
}

func NewNormalizer(logger interfaces.LoggerPort) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize никогда не завершается ошибкой: ячейка, которую не удалось
// вычислить, получает значение по умолчанию своей колонки
func (n *Normalizer) Normalize(rec models.Record, s schema.Schema) models.NormalizedRow {
	row := make(models.NormalizedRow, len(s.Columns))
	for i, col := range s.Columns {
		row[i] = n.cell(rec, col)
	}
	return row
}

func (n *Normalizer) cell(rec models.Record, col schema.Column) (value interface{}) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("Ошибка вычисления ячейки",
				interfaces.LogField{Key: "column", Value: col.Name},
				interfaces.LogField{Key: "panic", Value: fmt.Sprint(r)},
			)
			value = col.Fallback()
		}
	}()

	for _, src := range col.Sources {
		raw, ok := src.Resolve(rec)
		if !ok {
			continue
		}

		switch col.Kind {
		case schema.KindNumber:
			num, ok := toNumber(raw)
			if !ok {
				continue
			}
			if col.SkipZero && num == 0 {
				continue
			}
			return num
		default:
			str, ok := toText(raw)
			if !ok {
				continue
			}
			if col.SkipZero && str == "" {
				continue
			}
			return str
		}
	}

	return col.Fallback()
}

// toText приводит скаляр к строке. Объекты и массивы не считаются значением
func toText(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// toNumber приводит значение к float64. Нечисловой скаляр даёт 0,
// объекты и массивы не считаются значением
func toNumber(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, true
		}
		f = parsed
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, true
		}
		f = parsed
	case bool:
		return 0, true
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true
	}
	return f, true
}
