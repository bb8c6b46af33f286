package ozon

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/services"
)

// decodeObject разбирает JSON объект, сохраняя числа как json.Number
func decodeObject(body []byte) (models.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: empty body", models.ErrMalformedResponse)
	}
	return models.Record(obj), nil
}

// recordsAt возвращает массив объектов по пути. Отсутствие массива означает,
// что ответ не соответствует версии эндпоинта
func recordsAt(obj models.Record, path string) ([]models.Record, error) {
	raw, ok := obj.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q not found", models.ErrMalformedResponse, path)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a list", models.ErrMalformedResponse, path)
	}

	out := make([]models.Record, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %q contains a non-object", models.ErrMalformedResponse, path)
		}
		out = append(out, models.Record(m))
	}
	return out, nil
}

func stringAt(obj models.Record, path string) string {
	if path == "" {
		return ""
	}
	v, ok := obj.Lookup(path)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return models.IDString(v)
}

func boolAt(obj models.Record, path string) *bool {
	if path == "" {
		return nil
	}
	v, ok := obj.Lookup(path)
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

// listEnvelope декодер страницы: записи по itemsPath, токен по tokenPath,
// признак продолжения по hasNextPath. Пустой путь означает отсутствие поля
func listEnvelope(itemsPath, tokenPath, hasNextPath string) func([]byte) (*services.Decoded, error) {
	return func(body []byte) (*services.Decoded, error) {
		obj, err := decodeObject(body)
		if err != nil {
			return nil, err
		}
		records, err := recordsAt(obj, itemsPath)
		if err != nil {
			return nil, err
		}
		return &services.Decoded{
			Records:   records,
			NextToken: stringAt(obj, tokenPath),
			HasNext:   boolAt(obj, hasNextPath),
		}, nil
	}
}

// detailEnvelope декодер пакетного ответа с записями по itemsPath
func detailEnvelope(itemsPath string) func([]byte) ([]models.Record, error) {
	return func(body []byte) ([]models.Record, error) {
		obj, err := decodeObject(body)
		if err != nil {
			return nil, err
		}
		return recordsAt(obj, itemsPath)
	}
}
