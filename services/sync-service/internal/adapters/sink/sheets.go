package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	defaultStartCell = "O1"
	userEntered      = "USER_ENTERED"
	insertRows       = "INSERT_ROWS"
	rowsDimension    = "ROWS"
)

// SheetsConfig настройки записи напрямую в Google Sheets
type SheetsConfig struct {
	SpreadsheetID string
	// StartCell левая верхняя ячейка выгрузки
	StartCell string
	// BaseURL корень API, пустой для sheets.googleapis.com
	BaseURL string
}

// SheetsSink пишет пачки в таблицу через Sheets API v4.
// Первая пачка домена создаёт лист при необходимости, очищает его
// и записывает заголовки. Остальные дописываются в конец.
type SheetsSink struct {
	cfg    SheetsConfig
	svc    *sheets.Service
	logger interfaces.LoggerPort
}

// NewSheetsSinkFromCredentials авторизуется сервисным аккаунтом из JSON ключа
func NewSheetsSinkFromCredentials(ctx context.Context, cfg SheetsConfig, credentialsJSON []byte, logger interfaces.LoggerPort) (*SheetsSink, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	return NewSheetsSink(ctx, cfg, logger, option.WithCredentials(creds))
}

// NewSheetsSink собирает клиент Sheets API с переданными опциями
func NewSheetsSink(ctx context.Context, cfg SheetsConfig, logger interfaces.LoggerPort, opts ...option.ClientOption) (*SheetsSink, error) {
	if cfg.StartCell == "" {
		cfg.StartCell = defaultStartCell
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsSink{cfg: cfg, svc: svc, logger: logger}, nil
}

func (s *SheetsSink) Name() string { return "sheets" }

func (s *SheetsSink) Deliver(ctx context.Context, batch *models.DispatchBatch) error {
	target := fmt.Sprintf("%s!%s", quoteSheet(batch.Sheet), s.cfg.StartCell)
	values := s.svc.Spreadsheets.Values

	if batch.Index == 0 {
		if err := s.ensureSheet(ctx, batch.Sheet); err != nil {
			return err
		}
		if _, err := values.Clear(s.cfg.SpreadsheetID, quoteSheet(batch.Sheet), &sheets.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return sheetsError("sheets.clear", err)
		}

		rows := make([][]interface{}, 0, len(batch.Rows)+1)
		rows = append(rows, headerRow(batch.Headers))
		rows = append(rows, rowValues(batch.Rows)...)

		_, err := values.Update(s.cfg.SpreadsheetID, target, &sheets.ValueRange{
			Range:          target,
			MajorDimension: rowsDimension,
			Values:         rows,
		}).ValueInputOption(userEntered).Context(ctx).Do()
		return sheetsError("sheets.update", err)
	}

	_, err := values.Append(s.cfg.SpreadsheetID, target, &sheets.ValueRange{
		Range:          target,
		MajorDimension: rowsDimension,
		Values:         rowValues(batch.Rows),
	}).ValueInputOption(userEntered).InsertDataOption(insertRows).Context(ctx).Do()
	return sheetsError("sheets.append", err)
}

func (s *SheetsSink) ensureSheet(ctx context.Context, title string) error {
	meta, err := s.svc.Spreadsheets.Get(s.cfg.SpreadsheetID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return sheetsError("sheets.meta", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	s.logger.InfoWithContext(ctx, "Создание листа", interfaces.LogField{Key: "sheet", Value: title})
	_, err = s.svc.Spreadsheets.BatchUpdate(s.cfg.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	return sheetsError("sheets.add", err)
}

// sheetsError переводит ошибки клиента в FetchError с классификацией по статусу
func sheetsError(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return models.NewStatusError(op, "sheets", gerr.Code, []byte(gerr.Body))
	}
	return &models.FetchError{Op: op, Endpoint: "sheets", Err: err}
}

// quoteSheet экранирует имя листа для A1 нотации
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func headerRow(headers []string) []interface{} {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return row
}

func rowValues(rows []models.NormalizedRow) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = []interface{}(r)
	}
	return out
}
