package utils

// CursorStyle способ, которым эндпоинт продвигается по страницам
type CursorStyle string

const (
	// StyleLastID непрозрачный токен в поле last_id
	StyleLastID CursorStyle = "last_id"
	// StyleToken непрозрачный токен в поле cursor
	StyleToken CursorStyle = "cursor"
	// StyleOffset числовое смещение в записях
	StyleOffset CursorStyle = "offset"
	// StylePage номер страницы, начиная с 1
	StylePage CursorStyle = "page"
)

// IsToken сообщает, использует ли стиль строковый токен
func (s CursorStyle) IsToken() bool {
	return s == StyleLastID || s == StyleToken
}

// Cursor позиция в постраничной выборке. Нулевое значение означает первую страницу.
type Cursor struct {
	Token  string `json:"token,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// IsStart сообщает, указывает ли курсор на первую страницу
func (c Cursor) IsStart() bool {
	return c.Token == "" && c.Offset == 0
}

// PageNumber номер страницы для StylePage
func (c Cursor) PageNumber() int {
	if c.Offset < 1 {
		return 1
	}
	return c.Offset
}

// Advance вычисляет курсор следующей страницы.
// token - значение, которое вернул поставщик (для строковых стилей),
// received - число записей на текущей странице.
func (c Cursor) Advance(style CursorStyle, token string, received int) Cursor {
	switch style {
	case StyleOffset:
		return Cursor{Offset: c.Offset + received}
	case StylePage:
		return Cursor{Offset: c.PageNumber() + 1}
	default:
		return Cursor{Token: token}
	}
}

// Params возвращает поля запроса, кодирующие курсор.
// Для строковых стилей первая страница запрашивается без токена.
func (c Cursor) Params(style CursorStyle) map[string]interface{} {
	params := make(map[string]interface{}, 1)
	switch style {
	case StyleOffset:
		params["offset"] = c.Offset
	case StylePage:
		params["page"] = c.PageNumber()
	default:
		if c.Token != "" {
			params[string(style)] = c.Token
		}
	}
	return params
}
