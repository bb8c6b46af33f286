package models

import "time"

// NormalizedRow строка фиксированной длины: string или float64 в каждой ячейке
type NormalizedRow []interface{}

// DispatchBatch часть строк одного домена, отправляемая в приёмник за один вызов
type DispatchBatch struct {
	RunID   string          `json:"run_id"`
	Sheet   string          `json:"sheet"`
	Domain  Domain          `json:"domain"`
	Headers []string        `json:"headers"`
	Rows    []NormalizedRow `json:"rows"`
	Index   int             `json:"chunk"`
	Total   int             `json:"chunks"`
}

// ChunkOutcome результат доставки одной части
type ChunkOutcome struct {
	Index    int           `json:"index"`
	Rows     int           `json:"rows"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// Failed сообщает, завершилась ли доставка ошибкой
func (o ChunkOutcome) Failed() bool {
	return o.Err != nil
}
