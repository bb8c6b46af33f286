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

func TestFlowsDefaults(t *testing.T) {
	flows, err := Flows(FlowConfig{})
	require.NoError(t, err)
	require.Len(t, flows, 3)

	byDomain := map[models.Domain]services.Flow{}
	for _, f := range flows {
		byDomain[f.Domain] = f
	}

	catalog := byDomain[models.DomainCatalog]
	assert.Equal(t, "OZ_CARDS_PY", catalog.Sheet)
	assert.Len(t, catalog.Details, 3)
	assert.Equal(t, 11, catalog.Schema.Width())

	sales := byDomain[models.DomainSales]
	assert.Equal(t, "OZ_SALES_PY", sales.Sheet)
	require.Len(t, sales.Sources, 2)
	assert.NotNil(t, sales.Sources[0].Expand)
	assert.Empty(t, sales.Details)

	assert.Equal(t, "OZ_STOCK_PY", byDomain[models.DomainStock].Sheet)
}

func TestStockFallbackIsKeyedBySKU(t *testing.T) {
	flows, err := Flows(FlowConfig{})
	require.NoError(t, err)

	var stock services.Flow
	for _, f := range flows {
		if f.Domain == models.DomainStock {
			stock = f
		}
	}
	require.Len(t, stock.Sources, 1)
	candidates := stock.Sources[0].Candidates
	require.NotEmpty(t, candidates)

	last := candidates[len(candidates)-1]
	assert.Equal(t, "v2/analytics/stock_on_warehouses", last.Name)
	assert.Equal(t, services.IDSKU, last.Keys)
	for _, ep := range candidates[:len(candidates)-1] {
		assert.Equal(t, services.IDProduct, ep.Keys, ep.Name)
	}

	require.NotEmpty(t, stock.Details)
	for _, d := range stock.Details {
		assert.Equal(t, services.IDProduct, d.Keys, "details expect product ids")
	}
}

func TestFlowsOverrides(t *testing.T) {
	flows, err := Flows(FlowConfig{
		Sheets: map[models.Domain]string{models.DomainStock: "Остатки {account}"},
		Schemas: map[models.Domain][]schema.ColumnSpec{
			models.DomainStock: {
				{Name: "SKU", Sources: []string{"sku"}},
				{Name: "Количество", Kind: "number", Sources: []string{"free_to_sell_amount"}},
			},
		},
		PageSize: 500,
	})
	require.NoError(t, err)

	for _, f := range flows {
		if f.Domain != models.DomainStock {
			continue
		}
		assert.Equal(t, "Остатки {account}", f.Sheet)
		assert.Equal(t, []string{"SKU", "Количество"}, f.Schema.Headers())
		assert.Equal(t, 500, f.Sources[0].PageSize)
	}
}

func TestFlowsInvalidSchema(t *testing.T) {
	_, err := Flows(FlowConfig{
		Schemas: map[models.Domain][]schema.ColumnSpec{
			models.DomainCatalog: {{Name: "Бренд", Sources: []string{"match(attributes)"}}},
		},
	})
	assert.ErrorIs(t, err, schema.ErrInvalidSource)
}

func TestExpandPostingLines(t *testing.T) {
	posting := models.Record{
		"posting_number": "0001-1",
		"status":         "delivered",
		"products": []interface{}{
			map[string]interface{}{"sku": json.Number("111"), "quantity": json.Number("2"), "price": "100.00"},
			map[string]interface{}{"sku": json.Number("222"), "quantity": json.Number("1"), "price": "50.00"},
		},
		"financial_data": map[string]interface{}{
			"products": []interface{}{
				map[string]interface{}{"payout": json.Number("180")},
			},
		},
	}

	lines := expandPosting("fbo")(models.BaseRecord{ID: "0001-1", Fields: posting})
	require.Len(t, lines, 2)
	assert.Equal(t, "0001-1#0", lines[0].ID)
	assert.Equal(t, "0001-1#1", lines[1].ID)

	n := services.NewNormalizer(logger.NewNopLogger())
	s := SalesSchema()

	row := n.Normalize(lines[0].Fields, s)
	require.Len(t, row, s.Width())
	assert.Equal(t, "fbo", row[0])
	assert.Equal(t, "0001-1", row[1])
	assert.Equal(t, "delivered", row[3])
	assert.Equal(t, "111", row[5])
	assert.Equal(t, float64(2), row[8])
	assert.Equal(t, float64(100), row[9])
	assert.Equal(t, float64(180), row[10])

	row = n.Normalize(lines[1].Fields, s)
	require.Len(t, row, s.Width())
	assert.Equal(t, float64(0), row[10])
}

func TestExpandPostingWithoutProducts(t *testing.T) {
	lines := expandPosting("fbs")(models.BaseRecord{ID: "p", Fields: models.Record{"posting_number": "p"}})
	require.Len(t, lines, 1)
	assert.Equal(t, "p#0", lines[0].ID)

	row := services.NewNormalizer(logger.NewNopLogger()).Normalize(lines[0].Fields, SalesSchema())
	assert.Equal(t, "fbs", row[0])
	assert.Equal(t, "", row[5])
}
