package services

import (
	"context"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
)

// DetailSource источник деталей. Ответ попадает в запись под ключом Namespace
type DetailSource struct {
	Namespace  string
	Candidates []DetailEndpoint
	// Keys вид идентификаторов, которые принимает источник
	Keys IDKind
}

// detailsFor источники, принимающие ключи вида keys
func detailsFor(sources []DetailSource, keys IDKind) (accepted []DetailSource, skipped []string) {
	for _, src := range sources {
		if src.Keys != keys {
			skipped = append(skipped, src.Namespace)
			continue
		}
		accepted = append(accepted, src)
	}
	return accepted, skipped
}

// Merger левое внешнее соединение страницы с источниками деталей
type Merger struct {
	client   DetailClient
	resolver *Resolver
	logger   interfaces.LoggerPort
}

func NewMerger(client DetailClient, resolver *Resolver, logger interfaces.LoggerPort) *Merger {
	return &Merger{client: client, resolver: resolver, logger: logger}
}

// MergeResult объединённые записи и источники, которые не ответили
type MergeResult struct {
	Records map[string]models.Record
	Failed  []string
}

// Merge возвращает объединённую запись для каждого непустого id страницы.
// Каждый источник вызывается один раз на всю страницу. Недоступный источник
// ничего не добавляет, а id, которых нет на странице, отбрасываются.
func (m *Merger) Merge(ctx context.Context, account models.Account, base []models.BaseRecord, sources []DetailSource) MergeResult {
	result := MergeResult{Records: make(map[string]models.Record, len(base))}

	ids := make([]string, 0, len(base))
	for _, b := range base {
		if b.ID == "" {
			continue
		}
		if _, seen := result.Records[b.ID]; seen {
			continue
		}
		ids = append(ids, b.ID)
		result.Records[b.ID] = skeleton(b)
	}
	if len(ids) == 0 {
		return result
	}

	for _, src := range sources {
		var details map[string]models.Record
		_, err := resolve(ctx, m.resolver, account.ClientID, "details."+src.Namespace, src.Candidates,
			func(ctx context.Context, ep DetailEndpoint) error {
				var err error
				details, err = m.client.FetchDetails(ctx, account, ep, ids)
				return err
			})
		if err != nil {
			result.Failed = append(result.Failed, src.Namespace)
			m.logger.WarnWithContext(ctx, "Детали недоступны, строки будут заполнены частично",
				interfaces.LogField{Key: "namespace", Value: src.Namespace},
				interfaces.LogField{Key: "ids", Value: len(ids)},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			continue
		}

		for id, detail := range details {
			rec, ok := result.Records[id]
			if !ok {
				continue
			}
			rec[src.Namespace] = detail
		}
	}

	return result
}

// skeleton запись только из полей списочного эндпоинта
func skeleton(b models.BaseRecord) models.Record {
	rec := make(models.Record, len(b.Fields)+1)
	for k, v := range b.Fields {
		rec[k] = v
	}
	if _, ok := rec["id"]; !ok && b.ID != "" {
		rec["id"] = b.ID
	}
	return rec
}
