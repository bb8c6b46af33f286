package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
)

var ErrInvalidSource = errors.New("invalid column source")

// Source извлекает кандидатное значение ячейки из объединённой записи
type Source interface {
	Resolve(rec models.Record) (interface{}, bool)
	String() string
}

// PathSource значение по пути "a.b.0.c"
type PathSource struct {
	Path string
}

func (s PathSource) Resolve(rec models.Record) (interface{}, bool) {
	return rec.Lookup(s.Path)
}

func (s PathSource) String() string {
	return s.Path
}

// LiteralSource постоянное значение
type LiteralSource struct {
	Value string
}

func (s LiteralSource) Resolve(models.Record) (interface{}, bool) {
	return s.Value, true
}

func (s LiteralSource) String() string {
	return "=" + s.Value
}

// MatchSource ищет в списке List первый элемент, у которого поле Key равно
// одному из Values, и читает из него Value
type MatchSource struct {
	List   string
	Key    string
	Values []string
	Value  string
}

func (s MatchSource) Resolve(rec models.Record) (interface{}, bool) {
	raw, ok := rec.Lookup(s.List)
	if !ok {
		return nil, false
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}

	for _, item := range items {
		elem, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		key := models.IDString(elem[s.Key])
		for _, want := range s.Values {
			if key == want {
				return models.Record(elem).Lookup(s.Value)
			}
		}
	}
	return nil, false
}

func (s MatchSource) String() string {
	return fmt.Sprintf("match(%s; %s=%s; %s)", s.List, s.Key, strings.Join(s.Values, "|"), s.Value)
}

// ParseSource разбирает описание источника:
//
//	info.images.0.file_name                         путь
//	=FBO                                            литерал
//	match(attributes.attributes; id=85|31; values.0.value)
func ParseSource(spec string) (Source, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "":
		return nil, fmt.Errorf("%w: empty", ErrInvalidSource)
	case strings.HasPrefix(spec, "="):
		return LiteralSource{Value: spec[1:]}, nil
	case strings.HasPrefix(spec, "match("):
		return parseMatch(spec)
	case strings.ContainsAny(spec, " ;()|=") || strings.Contains(spec, ".."):
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, spec)
	}
	return PathSource{Path: spec}, nil
}

func parseMatch(spec string) (Source, error) {
	if !strings.HasSuffix(spec, ")") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, spec)
	}
	parts := strings.Split(spec[len("match("):len(spec)-1], ";")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: match needs 3 arguments: %q", ErrInvalidSource, spec)
	}

	list := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[2])
	cond := strings.SplitN(strings.TrimSpace(parts[1]), "=", 2)
	if list == "" || value == "" || len(cond) != 2 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, spec)
	}

	key := strings.TrimSpace(cond[0])
	var values []string
	for _, v := range strings.Split(cond[1], "|") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if key == "" || len(values) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, spec)
	}

	return MatchSource{List: list, Key: key, Values: values, Value: value}, nil
}
