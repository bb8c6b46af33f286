package schema

import (
	"encoding/json"
	"testing"

	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		spec string
		want Source
	}{
		{"info.name", PathSource{Path: "info.name"}},
		{"  images.0 ", PathSource{Path: "images.0"}},
		{"=FBO", LiteralSource{Value: "FBO"}},
		{"=", LiteralSource{Value: ""}},
		{
			"match(attributes.attributes; id=85|31; values.0.value)",
			MatchSource{List: "attributes.attributes", Key: "id", Values: []string{"85", "31"}, Value: "values.0.value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseSource(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSourceInvalid(t *testing.T) {
	for _, spec := range []string{
		"",
		"info name",
		"a..b",
		"match(a; id=1)",
		"match(a; id=; b)",
		"match(a; =1; b)",
		"match(a; id=1; b",
	} {
		_, err := ParseSource(spec)
		assert.ErrorIs(t, err, ErrInvalidSource, spec)
	}
}

func TestMatchSource(t *testing.T) {
	rec := models.Record{
		"attributes": models.Record{
			"attributes": []interface{}{
				map[string]interface{}{"id": json.Number("9048"), "values": []interface{}{map[string]interface{}{"value": "x"}}},
				map[string]interface{}{"id": json.Number("31"), "values": []interface{}{map[string]interface{}{"value": "Acme"}}},
				map[string]interface{}{"id": json.Number("85"), "values": []interface{}{map[string]interface{}{"value": "Other"}}},
			},
		},
	}

	src, err := ParseSource("match(attributes.attributes; id=85|31; values.0.value)")
	require.NoError(t, err)

	v, ok := src.Resolve(rec)
	require.True(t, ok)
	assert.Equal(t, "Acme", v, "first matching element wins")

	_, ok = src.Resolve(models.Record{})
	assert.False(t, ok)

	_, ok = src.Resolve(models.Record{"attributes": models.Record{"attributes": "broken"}})
	assert.False(t, ok)
}

func TestFromSpecs(t *testing.T) {
	s, err := FromSpecs(models.DomainStock, []ColumnSpec{
		{Name: "Артикул", Sources: []string{"offer_id", "item_code"}},
		{Name: "FBO", Kind: "number", Sources: []string{"match(stocks; type=fbo; present)"}, SkipZero: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Артикул", "FBO"}, s.Headers())
	assert.Equal(t, 2, s.Width())
	assert.Equal(t, KindNumber, s.Columns[1].Kind)
	assert.Equal(t, float64(0), s.Columns[1].Fallback())
	assert.Equal(t, "", s.Columns[0].Fallback())

	_, err = FromSpecs(models.DomainStock, nil)
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = FromSpecs(models.DomainStock, []ColumnSpec{{Name: "x", Kind: "date"}})
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = FromSpecs(models.DomainStock, []ColumnSpec{{Name: "x", Sources: []string{"a b"}}})
	assert.ErrorIs(t, err, ErrInvalidSource)
}
