package models

import "time"

// DomainResult итог синхронизации одного домена одного аккаунта
type DomainResult struct {
	Account      string        `json:"account"`
	ClientID     string        `json:"client_id"`
	Domain       Domain        `json:"domain"`
	Sheet        string        `json:"sheet,omitempty"`
	Endpoints    []string      `json:"endpoints,omitempty"`
	Pages        int           `json:"pages"`
	Rows         int           `json:"rows"`
	Chunks       int           `json:"chunks"`
	FailedChunks int           `json:"failed_chunks"`
	// Degraded выставляется, если хотя бы один источник деталей не ответил
	// и строки выгружены частично заполненными
	Degraded  bool          `json:"degraded"`
	// Partial строки отправлены, хотя часть источников завершилась ошибкой
	Partial   bool          `json:"partial,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// OK true, если домен выгружен без ошибок
func (r DomainResult) OK() bool {
	return r.Error == "" && r.FailedChunks == 0
}

// RunReport отчёт об одном запуске синхронизации
type RunReport struct {
	RunID      string         `json:"run_id"`
	Trigger    string         `json:"trigger,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []DomainResult `json:"results"`
}

// DomainTotals суммарные показатели домена по всем аккаунтам
type DomainTotals struct {
	Rows   int `json:"rows"`
	Pages  int `json:"pages"`
	Errors int `json:"errors"`
}

// Totals агрегирует результаты по доменам
func (r *RunReport) Totals() map[Domain]DomainTotals {
	totals := make(map[Domain]DomainTotals)
	for _, res := range r.Results {
		t := totals[res.Domain]
		t.Rows += res.Rows
		t.Pages += res.Pages
		if !res.OK() {
			t.Errors++
		}
		totals[res.Domain] = t
	}
	return totals
}

// ForAccount возвращает копию отчёта только с результатами указанного аккаунта
func (r *RunReport) ForAccount(clientID string) *RunReport {
	out := *r
	out.Results = nil
	for _, res := range r.Results {
		if res.ClientID == clientID {
			out.Results = append(out.Results, res)
		}
	}
	return &out
}

// Failed true, если хотя бы один домен завершился ошибкой
func (r *RunReport) Failed() bool {
	for _, res := range r.Results {
		if !res.OK() {
			return true
		}
	}
	return false
}
