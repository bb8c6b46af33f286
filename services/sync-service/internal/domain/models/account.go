package models

import "strings"

// Account учётные данные одного продавца. Секрет никогда не сериализуется.
type Account struct {
	Name     string `json:"name" mapstructure:"name"`
	ClientID string `json:"client_id" mapstructure:"clientId"`
	APIKey   string `json:"-" mapstructure:"apiKey"`
}

// Validate проверяет, что оба значения заданы
func (a Account) Validate() error {
	if strings.TrimSpace(a.ClientID) == "" || strings.TrimSpace(a.APIKey) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Label имя аккаунта для логов и отчётов
func (a Account) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ClientID
}

// MaskedKey возвращает начало ключа, остальное скрыто
func (a Account) MaskedKey() string {
	return MaskSecret(a.APIKey)
}

// maxVisible предел открытых символов секрета
const maxVisible = 4

// MaskSecret маскирует секрет для вывода в логи.
// Открыта не больше четверти секрета и не больше maxVisible символов
func MaskSecret(secret string) string {
	visible := len(secret) / 4
	if visible > maxVisible {
		visible = maxVisible
	}
	if visible == 0 {
		return "***"
	}
	return secret[:visible] + "***"
}
