package ozon

import (
	"encoding/json"
	"strconv"

	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/services"
)

// Версии эндпоинтов перечислены от новой к старой. Первая ответившая
// версия используется до конца запуска.

func visibleAll() map[string]interface{} {
	return map[string]interface{}{"visibility": "ALL"}
}

func limitBody(_ models.Filter, size int) map[string]interface{} {
	return map[string]interface{}{"filter": visibleAll(), "limit": size}
}

// CatalogListEndpoints список товаров продавца
func CatalogListEndpoints() []services.Endpoint {
	return []services.Endpoint{
		{
			Name:        "v3/product/list",
			Path:        "/v3/product/list",
			Style:       utils.StyleLastID,
			MaxPageSize: 1000,
			IDPath:      "product_id",
			Build:       limitBody,
			Decode:      listEnvelope("result.items", "result.last_id", ""),
		},
		{
			Name:        "v2/product/list",
			Path:        "/v2/product/list",
			Style:       utils.StyleLastID,
			MaxPageSize: 1000,
			IDPath:      "product_id",
			Build:       limitBody,
			Decode:      listEnvelope("result.items", "result.last_id", ""),
		},
		{
			Name:        "v1/product/list",
			Path:        "/v1/product/list",
			Style:       utils.StylePage,
			MaxPageSize: 100,
			IDPath:      "product_id",
			Build: func(_ models.Filter, size int) map[string]interface{} {
				return map[string]interface{}{"page_size": size}
			},
			Decode: listEnvelope("result.items", "", ""),
		},
	}
}

// StockListEndpoints остатки по товарам
func StockListEndpoints() []services.Endpoint {
	return []services.Endpoint{
		{
			Name:        "v4/product/info/stocks",
			Path:        "/v4/product/info/stocks",
			Style:       utils.StyleToken,
			MaxPageSize: 1000,
			IDPath:      "product_id",
			Build:       limitBody,
			Decode:      listEnvelope("items", "cursor", ""),
		},
		{
			Name:        "v3/product/info/stocks",
			Path:        "/v3/product/info/stocks",
			Style:       utils.StyleLastID,
			MaxPageSize: 1000,
			IDPath:      "product_id",
			Build:       limitBody,
			Decode:      listEnvelope("result.items", "result.last_id", ""),
		},
		{
			Name:        "v2/analytics/stock_on_warehouses",
			Path:        "/v2/analytics/stock_on_warehouses",
			Style:       utils.StyleOffset,
			MaxPageSize: 1000,
			IDPath:      "sku",
			Keys:        services.IDSKU,
			Build: func(_ models.Filter, size int) map[string]interface{} {
				return map[string]interface{}{"limit": size, "warehouse_type": "ALL"}
			},
			Decode: listEnvelope("result.rows", "", ""),
		},
	}
}

func postingBody(f models.Filter, size int) map[string]interface{} {
	filter := map[string]interface{}{}
	if f.Range != nil {
		filter["since"] = f.Range.Since()
		filter["to"] = f.Range.Until()
	}
	return map[string]interface{}{
		"dir":    "ASC",
		"filter": filter,
		"limit":  size,
		"with": map[string]interface{}{
			"analytics_data": true,
			"financial_data": true,
		},
	}
}

// FBOPostingEndpoints отправления со склада маркетплейса
func FBOPostingEndpoints() []services.Endpoint {
	return []services.Endpoint{
		{
			Name:        "v2/posting/fbo/list",
			Path:        "/v2/posting/fbo/list",
			Style:       utils.StyleOffset,
			MaxPageSize: 1000,
			IDPath:      "posting_number",
			Build:       postingBody,
			Decode:      listEnvelope("result", "", ""),
		},
	}
}

// FBSPostingEndpoints отправления со склада продавца
func FBSPostingEndpoints() []services.Endpoint {
	return []services.Endpoint{
		{
			Name:        "v3/posting/fbs/list",
			Path:        "/v3/posting/fbs/list",
			Style:       utils.StyleOffset,
			MaxPageSize: 1000,
			IDPath:      "posting_number",
			Build:       postingBody,
			Decode:      listEnvelope("result.postings", "", "result.has_next"),
		},
		{
			Name:        "v2/posting/fbs/list",
			Path:        "/v2/posting/fbs/list",
			Style:       utils.StyleOffset,
			MaxPageSize: 1000,
			IDPath:      "posting_number",
			Build:       postingBody,
			Decode:      listEnvelope("result", "", ""),
		},
	}
}

// productIDs передаёт числовые идентификаторы числами
func productIDs(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		if _, err := strconv.ParseInt(id, 10, 64); err == nil {
			out[i] = json.Number(id)
			continue
		}
		out[i] = id
	}
	return out
}

func byProductID(ids []string) map[string]interface{} {
	return map[string]interface{}{"product_id": productIDs(ids)}
}

func filteredByProductID(token string) func([]string) map[string]interface{} {
	return func(ids []string) map[string]interface{} {
		filter := visibleAll()
		filter["product_id"] = productIDs(ids)
		body := map[string]interface{}{"filter": filter, "limit": len(ids)}
		if token != "" {
			body[token] = ""
		}
		return body
	}
}

// InfoEndpoints карточки товаров
func InfoEndpoints() []services.DetailEndpoint {
	return []services.DetailEndpoint{
		{
			Name:   "v3/product/info/list",
			Path:   "/v3/product/info/list",
			IDPath: "id",
			Build:  byProductID,
			Decode: detailEnvelope("items"),
		},
		{
			Name:   "v2/product/info/list",
			Path:   "/v2/product/info/list",
			IDPath: "id",
			Build:  byProductID,
			Decode: detailEnvelope("result.items"),
		},
	}
}

// PriceEndpoints цены товаров
func PriceEndpoints() []services.DetailEndpoint {
	return []services.DetailEndpoint{
		{
			Name:   "v5/product/info/prices",
			Path:   "/v5/product/info/prices",
			IDPath: "product_id",
			Build:  filteredByProductID("cursor"),
			Decode: detailEnvelope("items"),
		},
		{
			Name:   "v4/product/info/prices",
			Path:   "/v4/product/info/prices",
			IDPath: "product_id",
			Build:  filteredByProductID("last_id"),
			Decode: detailEnvelope("result.items"),
		},
	}
}

// AttributeEndpoints характеристики товаров (бренд)
func AttributeEndpoints() []services.DetailEndpoint {
	build := func(ids []string) map[string]interface{} {
		body := filteredByProductID("")(ids)
		body["sort_dir"] = "ASC"
		return body
	}
	return []services.DetailEndpoint{
		{
			Name:   "v4/product/info/attributes",
			Path:   "/v4/product/info/attributes",
			IDPath: "id",
			Build:  build,
			Decode: detailEnvelope("result"),
		},
		{
			Name:   "v3/products/info/attributes",
			Path:   "/v3/products/info/attributes",
			IDPath: "id",
			Build:  build,
			Decode: detailEnvelope("result"),
		},
	}
}
