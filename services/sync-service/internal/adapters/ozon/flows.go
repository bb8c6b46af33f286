package ozon

import (
	"fmt"

	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/schema"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/services"
)

// DefaultSheets листы по умолчанию
var DefaultSheets = map[models.Domain]string{
	models.DomainCatalog: "OZ_CARDS_PY",
	models.DomainStock:   "OZ_STOCK_PY",
	models.DomainSales:   "OZ_SALES_PY",
}

// FlowConfig переопределения выгрузок из конфигурации
type FlowConfig struct {
	Sheets   map[models.Domain]string
	Schemas  map[models.Domain][]schema.ColumnSpec
	PageSize int
}

// Flows собирает описания выгрузок всех доменов
func Flows(cfg FlowConfig) ([]services.Flow, error) {
	flows := []services.Flow{
		{
			Domain: models.DomainCatalog,
			Sources: []services.ListSource{
				{Name: "products", Candidates: CatalogListEndpoints(), PageSize: cfg.PageSize},
			},
			Details: []services.DetailSource{
				{Namespace: "info", Candidates: InfoEndpoints()},
				{Namespace: "prices", Candidates: PriceEndpoints()},
				{Namespace: "attributes", Candidates: AttributeEndpoints()},
			},
			Schema: CatalogSchema(),
		},
		{
			Domain: models.DomainStock,
			Sources: []services.ListSource{
				{Name: "stocks", Candidates: StockListEndpoints(), PageSize: cfg.PageSize},
			},
			Details: []services.DetailSource{
				{Namespace: "info", Candidates: InfoEndpoints()},
			},
			Schema: StockSchema(),
		},
		{
			Domain: models.DomainSales,
			Sources: []services.ListSource{
				{Name: "fbo", Candidates: FBOPostingEndpoints(), PageSize: cfg.PageSize, Expand: expandPosting("fbo")},
				{Name: "fbs", Candidates: FBSPostingEndpoints(), PageSize: cfg.PageSize, Expand: expandPosting("fbs")},
			},
			Schema: SalesSchema(),
		},
	}

	for i := range flows {
		d := flows[i].Domain
		flows[i].Sheet = DefaultSheets[d]
		if sheet, ok := cfg.Sheets[d]; ok && sheet != "" {
			flows[i].Sheet = sheet
		}
		if specs, ok := cfg.Schemas[d]; ok && len(specs) > 0 {
			s, err := schema.FromSpecs(d, specs)
			if err != nil {
				return nil, fmt.Errorf("schema %s: %w", d, err)
			}
			flows[i].Schema = s
		}
	}
	return flows, nil
}

// expandPosting разворачивает отправление в строки по товарам.
// Финансовые данные сопоставляются с товаром по позиции.
func expandPosting(scheme string) func(models.BaseRecord) []models.BaseRecord {
	return func(b models.BaseRecord) []models.BaseRecord {
		products := listAt(b.Fields, "products")
		financial := listAt(b.Fields, "financial_data.products")

		if len(products) == 0 {
			return []models.BaseRecord{{
				ID: fmt.Sprintf("%s#0", b.ID),
				Fields: models.Record{
					"scheme":  scheme,
					"posting": b.Fields,
					"line":    0,
				},
			}}
		}

		out := make([]models.BaseRecord, 0, len(products))
		for i, p := range products {
			fields := models.Record{
				"scheme":  scheme,
				"posting": b.Fields,
				"product": p,
				"line":    i,
			}
			if i < len(financial) {
				fields["financial"] = financial[i]
			}
			out = append(out, models.BaseRecord{
				ID:     fmt.Sprintf("%s#%d", b.ID, i),
				Fields: fields,
			})
		}
		return out
	}
}

func listAt(rec models.Record, path string) []interface{} {
	raw, ok := rec.Lookup(path)
	if !ok {
		return nil
	}
	list, _ := raw.([]interface{})
	return list
}
