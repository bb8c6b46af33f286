package ozon

import (
	"encoding/json"
	"testing"

	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/schema"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(t *testing.T, s schema.Schema, row models.NormalizedRow, name string) interface{} {
	t.Helper()
	for i, h := range s.Headers() {
		if h == name {
			return row[i]
		}
	}
	t.Fatalf("column %q not found", name)
	return nil
}

func TestCatalogSchemaFullRecord(t *testing.T) {
	rec := models.Record{
		"product_id": json.Number("101"),
		"offer_id":   "MUG-1",
		"info": map[string]interface{}{
			"id":                      json.Number("101"),
			"name":                    "Кружка",
			"primary_image":           []interface{}{"https://cdn/mug.jpg"},
			"description_category_id": json.Number("17028922"),
			"sources":                 []interface{}{map[string]interface{}{"sku": json.Number("900101")}},
			"stocks": map[string]interface{}{
				"stocks": []interface{}{
					map[string]interface{}{"type": "fbs", "present": json.Number("3")},
					map[string]interface{}{"type": "fbo", "present": json.Number("12")},
				},
			},
		},
		"prices": map[string]interface{}{
			"price": map[string]interface{}{
				"price":           json.Number("150"),
				"old_price":       json.Number("200"),
				"marketing_price": json.Number("140"),
			},
		},
		"attributes": map[string]interface{}{
			"attributes": []interface{}{
				map[string]interface{}{"id": json.Number("9048"), "values": []interface{}{map[string]interface{}{"value": "Кружка"}}},
				map[string]interface{}{"id": json.Number("85"), "values": []interface{}{map[string]interface{}{"value": "Acme"}}},
			},
		},
	}

	s := CatalogSchema()
	row := services.NewNormalizer(logger.NewNopLogger()).Normalize(rec, s)
	require.Len(t, row, s.Width())

	assert.Equal(t, "https://cdn/mug.jpg", column(t, s, row, "Фото"))
	assert.Equal(t, "101", column(t, s, row, "product_id"))
	assert.Equal(t, "900101", column(t, s, row, "SKU"))
	assert.Equal(t, "MUG-1", column(t, s, row, "Артикул"))
	assert.Equal(t, "Acme", column(t, s, row, "Бренд"))
	assert.Equal(t, "17028922", column(t, s, row, "Категория"))
	assert.Equal(t, "Кружка", column(t, s, row, "Название"))
	assert.Equal(t, float64(200), column(t, s, row, "Цена (База)"))
	assert.Equal(t, float64(150), column(t, s, row, "Цена (Прод)"))
	assert.Equal(t, float64(140), column(t, s, row, "Цена (СПП)"))
	assert.Equal(t, float64(12), column(t, s, row, "Остаток"))
}

func TestCatalogSchemaPriceFallbacks(t *testing.T) {
	rec := models.Record{
		"info": map[string]interface{}{
			"price":           "150",
			"old_price":       "0",
			"marketing_price": "0",
		},
	}

	s := CatalogSchema()
	row := services.NewNormalizer(logger.NewNopLogger()).Normalize(rec, s)

	assert.Equal(t, float64(150), column(t, s, row, "Цена (База)"))
	assert.Equal(t, float64(150), column(t, s, row, "Цена (Прод)"))
	assert.Equal(t, float64(150), column(t, s, row, "Цена (СПП)"))
}

func TestCatalogSchemaImageFallback(t *testing.T) {
	rec := models.Record{"images": []interface{}{map[string]interface{}{"file_name": "a.jpg"}}}

	s := CatalogSchema()
	row := services.NewNormalizer(logger.NewNopLogger()).Normalize(rec, s)
	assert.Equal(t, "a.jpg", column(t, s, row, "Фото"))
}

func TestCatalogSchemaBrandNotGuessed(t *testing.T) {
	rec := models.Record{
		"info": map[string]interface{}{"name": "Acme Кружка"},
		"attributes": map[string]interface{}{
			"attributes": []interface{}{
				map[string]interface{}{"id": json.Number("4180"), "values": []interface{}{map[string]interface{}{"value": "Acme Кружка"}}},
			},
		},
	}

	s := CatalogSchema()
	row := services.NewNormalizer(logger.NewNopLogger()).Normalize(rec, s)
	assert.Equal(t, "", column(t, s, row, "Бренд"))
}

func brandAttrs(pairs ...string) models.Record {
	attrs := make([]interface{}, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		attrs = append(attrs, map[string]interface{}{
			"id":     json.Number(pairs[i]),
			"values": []interface{}{map[string]interface{}{"value": pairs[i+1]}},
		})
	}
	return models.Record{"attributes": map[string]interface{}{"attributes": attrs}}
}

func TestCatalogSchemaBrandAttributes(t *testing.T) {
	tests := []struct {
		name string
		rec  models.Record
		want string
	}{
		{name: "id 85", rec: brandAttrs("9048", "Кружка", "85", "Acme"), want: "Acme"},
		{name: "id 31", rec: brandAttrs("9048", "Кружка", "31", "Globex"), want: "Globex"},
		{name: "85 before 31", rec: brandAttrs("85", "Acme", "31", "Globex"), want: "Acme"},
		{name: "31 before 85", rec: brandAttrs("31", "Globex", "85", "Acme"), want: "Globex"},
		{name: "none", rec: brandAttrs("9048", "Кружка"), want: ""},
	}

	s := CatalogSchema()
	n := services.NewNormalizer(logger.NewNopLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := n.Normalize(tt.rec, s)
			assert.Equal(t, tt.want, column(t, s, row, "Бренд"))
		})
	}
}

func TestCatalogSchemaSkeletonRow(t *testing.T) {
	s := CatalogSchema()
	row := services.NewNormalizer(logger.NewNopLogger()).Normalize(models.Record{"id": "5"}, s)

	require.Len(t, row, s.Width())
	assert.Equal(t, "5", column(t, s, row, "product_id"))
	assert.Equal(t, float64(0), column(t, s, row, "Цена (Прод)"))
	assert.Equal(t, "", column(t, s, row, "Название"))
}

func TestStockSchemaWarehouseRows(t *testing.T) {
	s := StockSchema()
	n := services.NewNormalizer(logger.NewNopLogger())

	analytics := n.Normalize(models.Record{
		"sku":                 json.Number("900101"),
		"item_code":           "MUG-1",
		"item_name":           "Кружка",
		"warehouse_name":      "Хоругвино",
		"free_to_sell_amount": json.Number("7"),
		"reserved_amount":     json.Number("1"),
	}, s)
	assert.Equal(t, "MUG-1", column(t, s, analytics, "Артикул"))
	assert.Equal(t, "Хоругвино", column(t, s, analytics, "Склад"))
	assert.Equal(t, float64(7), column(t, s, analytics, "FBO остаток"))
	assert.Equal(t, float64(1), column(t, s, analytics, "FBO резерв"))

	perProduct := n.Normalize(models.Record{
		"product_id": json.Number("101"),
		"offer_id":   "MUG-1",
		"stocks": []interface{}{
			map[string]interface{}{"type": "fbo", "present": json.Number("12"), "reserved": json.Number("2")},
			map[string]interface{}{"type": "fbs", "present": json.Number("3"), "reserved": json.Number("0")},
		},
	}, s)
	assert.Equal(t, "Все склады", column(t, s, perProduct, "Склад"))
	assert.Equal(t, float64(12), column(t, s, perProduct, "FBO остаток"))
	assert.Equal(t, float64(2), column(t, s, perProduct, "FBO резерв"))
	assert.Equal(t, float64(3), column(t, s, perProduct, "FBS остаток"))
	assert.Equal(t, float64(0), column(t, s, perProduct, "FBS резерв"))
}
