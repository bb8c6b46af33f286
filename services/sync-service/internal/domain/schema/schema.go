package schema

import (
	"fmt"
	"strings"

	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
)

// Kind тип ячейки
type Kind int

const (
	KindString Kind = iota
	KindNumber
)

// ParseKind разбирает "string" или "number"
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "text":
		return KindString, nil
	case "number", "float", "int":
		return KindNumber, nil
	}
	return KindString, fmt.Errorf("%w: unknown kind %q", ErrInvalidSource, s)
}

// Column одна колонка выходной строки
type Column struct {
	Name    string
	Kind    Kind
	Sources []Source
	// SkipZero пропускает пустые строки и нули, переходя к следующему источнику
	SkipZero bool
	// Default значение, если ни один источник не дал результата.
	// nil означает "" для строк и 0 для чисел
	Default interface{}
}

// Fallback значение по умолчанию, приведённое к типу колонки
func (c Column) Fallback() interface{} {
	if c.Default != nil {
		return c.Default
	}
	if c.Kind == KindNumber {
		return float64(0)
	}
	return ""
}

// Schema упорядоченный набор колонок домена
type Schema struct {
	Domain  models.Domain
	Columns []Column
}

// Headers названия колонок
func (s Schema) Headers() []string {
	headers := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		headers[i] = c.Name
	}
	return headers
}

// Width число ячеек в строке
func (s Schema) Width() int {
	return len(s.Columns)
}

// ColumnSpec описание колонки в конфигурации
type ColumnSpec struct {
	Name     string   `mapstructure:"name"`
	Kind     string   `mapstructure:"kind"`
	Sources  []string `mapstructure:"sources"`
	SkipZero bool     `mapstructure:"skipZero"`
}

// NewColumn строит колонку из описаний источников
func NewColumn(name string, kind Kind, skipZero bool, specs ...string) (Column, error) {
	col := Column{Name: name, Kind: kind, SkipZero: skipZero}
	for _, spec := range specs {
		src, err := ParseSource(spec)
		if err != nil {
			return Column{}, fmt.Errorf("column %q: %w", name, err)
		}
		col.Sources = append(col.Sources, src)
	}
	return col, nil
}

// Text колонка-строка; источники встроенных схем проверяются при старте
func Text(name string, specs ...string) Column {
	return must(NewColumn(name, KindString, false, specs...))
}

// FirstText строковая колонка, пропускающая пустые значения
func FirstText(name string, specs ...string) Column {
	return must(NewColumn(name, KindString, true, specs...))
}

// Number числовая колонка
func Number(name string, specs ...string) Column {
	return must(NewColumn(name, KindNumber, false, specs...))
}

// FirstNonZero числовая колонка, пропускающая нули
func FirstNonZero(name string, specs ...string) Column {
	return must(NewColumn(name, KindNumber, true, specs...))
}

func must(c Column, err error) Column {
	if err != nil {
		panic(err)
	}
	return c
}

// FromSpecs строит схему домена из конфигурации
func FromSpecs(domain models.Domain, specs []ColumnSpec) (Schema, error) {
	if len(specs) == 0 {
		return Schema{}, fmt.Errorf("%w: schema %s has no columns", ErrInvalidSource, domain)
	}

	s := Schema{Domain: domain}
	for _, spec := range specs {
		if strings.TrimSpace(spec.Name) == "" {
			return Schema{}, fmt.Errorf("%w: column without name in %s", ErrInvalidSource, domain)
		}
		kind, err := ParseKind(spec.Kind)
		if err != nil {
			return Schema{}, err
		}
		col, err := NewColumn(spec.Name, kind, spec.SkipZero, spec.Sources...)
		if err != nil {
			return Schema{}, err
		}
		s.Columns = append(s.Columns, col)
	}
	return s, nil
}
