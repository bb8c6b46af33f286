package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
)

func newTestLogger() interfaces.LoggerPort {
	return logger.NewNopLogger()
}

func notFound(path string) error {
	return models.NewStatusError("list", path, 404, []byte(`{"code":5,"message":"Not Found"}`))
}

// scriptedFetcher отдаёт страницы заданных размеров для каждой версии эндпоинта
type scriptedFetcher struct {
	mu         sync.Mutex
	pages      map[string][]int
	fail       map[string]error
	failAt     map[string]int
	emptyToken bool
	calls      map[string]int
	probes     map[string]int
	filters    []models.Filter
	cursors    []utils.Cursor
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		pages:  make(map[string][]int),
		fail:   make(map[string]error),
		failAt: make(map[string]int),
		calls:  make(map[string]int),
		probes: make(map[string]int),
	}
}

func (f *scriptedFetcher) FetchPage(_ context.Context, _ models.Account, ep Endpoint, filter models.Filter, cursor utils.Cursor, pageSize int) (*models.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.fail[ep.Name]; ok {
		return nil, err
	}
	if pageSize == probePageSize {
		f.probes[ep.Name]++
		return &models.Page{Records: []models.BaseRecord{{ID: "probe"}}}, nil
	}

	idx := f.calls[ep.Name]
	f.calls[ep.Name]++
	f.filters = append(f.filters, filter)
	f.cursors = append(f.cursors, cursor)

	if at, ok := f.failAt[ep.Name]; ok && at == idx {
		return nil, &models.FetchError{Op: "list", Endpoint: ep.Path, Err: context.DeadlineExceeded}
	}

	sizes := f.pages[ep.Name]
	if idx >= len(sizes) {
		return &models.Page{}, nil
	}

	n := sizes[idx]
	records := make([]models.BaseRecord, n)
	for j := 0; j < n; j++ {
		id := fmt.Sprintf("%d-%d", idx, j)
		records[j] = models.BaseRecord{ID: id, Fields: models.Record{
			"id":       id,
			"offer_id": "offer-" + id,
			"price":    json.Number("150"),
		}}
	}

	token := fmt.Sprintf("t%d", idx+1)
	if f.emptyToken {
		token = ""
	}
	return &models.Page{
		Records: records,
		Next:    cursor.Advance(ep.Style, token, n),
		HasMore: n >= pageSize,
	}, nil
}

func (f *scriptedFetcher) listCalls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// fakeDetails возвращает {"name": "name-<id>"} для каждого id
type fakeDetails struct {
	mu    sync.Mutex
	fail  map[string]error
	extra []string
	calls map[string]int
	ids   [][]string
}

func newFakeDetails() *fakeDetails {
	return &fakeDetails{fail: make(map[string]error), calls: make(map[string]int)}
}

func (d *fakeDetails) FetchDetails(_ context.Context, _ models.Account, ep DetailEndpoint, ids []string) (map[string]models.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls[ep.Name]++
	d.ids = append(d.ids, append([]string(nil), ids...))
	if err, ok := d.fail[ep.Name]; ok {
		return nil, err
	}

	out := make(map[string]models.Record, len(ids))
	for _, id := range append(append([]string(nil), ids...), d.extra...) {
		out[id] = models.Record{"name": "name-" + id, "marketing_price": json.Number("0")}
	}
	return out, nil
}

func (d *fakeDetails) callsTo(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

// recordingSink запоминает полученные части
type recordingSink struct {
	mu      sync.Mutex
	batches []models.DispatchBatch
	failOn  map[int]error
	block   bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(ctx context.Context, batch *models.DispatchBatch) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOn[batch.Index]; ok {
		return err
	}
	s.batches = append(s.batches, *batch)
	return nil
}

func (s *recordingSink) rows() []models.NormalizedRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.NormalizedRow
	for _, b := range s.batches {
		rows = append(rows, b.Rows...)
	}
	return rows
}

type recordingPublisher struct {
	reports []*models.RunReport
	err     error
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(_ context.Context, report *models.RunReport) error {
	p.reports = append(p.reports, report)
	return p.err
}
