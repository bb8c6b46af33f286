package models

import "github.com/athebyme/gomarket-sync/pkg/utils"

// Page одна страница списочного эндпоинта
type Page struct {
	Records []BaseRecord
	// Next курсор следующей страницы
	Next utils.Cursor
	// HasMore false, если поставщик явно сообщил об окончании выборки
	// или страница оказалась неполной
	HasMore bool
}
