package ozon

import (
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/schema"
)

// Пути указаны с учётом пространств имён объединения: поля списка лежат
// в корне записи, детали в info, prices и attributes.

const (
	brandAttribute = "match(attributes.attributes; id=85|31; values.0.value)"
)

var sellerPrice = []string{
	"prices.price.price",
	"info.price",
	"price.price",
	"price",
}

func withSellerPrice(head ...string) []string {
	return append(head, sellerPrice...)
}

// CatalogSchema карточки товаров
func CatalogSchema() schema.Schema {
	return schema.Schema{
		Domain: models.DomainCatalog,
		Columns: []schema.Column{
			schema.FirstText("Фото",
				"primary_image",
				"info.primary_image",
				"info.primary_image.0",
				"images.0.file_name",
				"images.0",
				"info.images.0.file_name",
				"info.images.0.url",
				"info.images.0",
				"attributes.primary_image",
				"attributes.images.0.file_name",
				"attributes.images.0",
			),
			schema.FirstText("product_id", "product_id", "info.id", "id"),
			schema.FirstText("SKU",
				"info.sources.0.sku",
				"info.sku",
				"info.fbo_sku",
				"info.fbs_sku",
				"sku",
			),
			schema.FirstText("Артикул", "offer_id", "info.offer_id", "attributes.offer_id"),
			schema.FirstText("Бренд", brandAttribute),
			schema.FirstText("Категория",
				"info.description_category_id",
				"info.category_id",
				"attributes.description_category_id",
				"attributes.category_id",
				"category_id",
			),
			schema.FirstText("Название", "info.name", "attributes.name", "name"),
			schema.FirstNonZero("Цена (База)", withSellerPrice(
				"prices.price.old_price",
				"info.old_price",
				"price.old_price",
				"old_price",
			)...),
			schema.FirstNonZero("Цена (Прод)", sellerPrice...),
			schema.FirstNonZero("Цена (СПП)", withSellerPrice(
				"prices.price.marketing_seller_price",
				"prices.price.marketing_price",
				"info.marketing_price",
				"price.marketing_price",
				"marketing_price",
			)...),
			schema.FirstNonZero("Остаток",
				"info.stocks.present",
				"match(info.stocks.stocks; type=fbo; present)",
				"match(info.stocks.stocks; type=fbs; present)",
				"stocks.present",
			),
		},
	}
}

// StockSchema остатки по складам
func StockSchema() schema.Schema {
	return schema.Schema{
		Domain: models.DomainStock,
		Columns: []schema.Column{
			schema.FirstText("product_id", "product_id", "info.id"),
			schema.FirstText("SKU", "sku", "info.sources.0.sku", "info.sku"),
			schema.FirstText("Артикул", "offer_id", "item_code", "info.offer_id"),
			schema.FirstText("Название", "info.name", "item_name", "name"),
			schema.FirstText("Склад", "warehouse_name", "=Все склады"),
			schema.FirstNonZero("FBO остаток",
				"match(stocks; type=fbo; present)",
				"free_to_sell_amount",
			),
			schema.FirstNonZero("FBO резерв",
				"match(stocks; type=fbo; reserved)",
				"reserved_amount",
			),
			schema.Number("FBS остаток", "match(stocks; type=fbs; present)"),
			schema.Number("FBS резерв", "match(stocks; type=fbs; reserved)"),
		},
	}
}

// SalesSchema строки отправлений, по одной на товар
func SalesSchema() schema.Schema {
	return schema.Schema{
		Domain: models.DomainSales,
		Columns: []schema.Column{
			schema.Text("Схема", "scheme"),
			schema.Text("Номер отправления", "posting.posting_number"),
			schema.Text("Номер заказа", "posting.order_number", "posting.order_id"),
			schema.Text("Статус", "posting.status"),
			schema.FirstText("Дата создания", "posting.created_at", "posting.in_process_at"),
			schema.Text("SKU", "product.sku"),
			schema.Text("Артикул", "product.offer_id"),
			schema.Text("Название", "product.name"),
			schema.Number("Количество", "product.quantity"),
			schema.FirstNonZero("Цена", "product.price", "financial.price"),
			schema.Number("Выплата", "financial.payout"),
			schema.Number("Комиссия", "financial.commission_amount"),
			schema.FirstText("Регион", "posting.analytics_data.region"),
			schema.FirstText("Город", "posting.analytics_data.city"),
			schema.FirstText("Склад",
				"posting.analytics_data.warehouse_name",
				"posting.analytics_data.warehouse",
				"posting.delivery_method.warehouse",
			),
		},
	}
}
