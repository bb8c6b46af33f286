package ozon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/logger"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccount = models.Account{Name: "main", ClientID: "12345", APIKey: "secret-api-key"}

type captured struct {
	path    string
	headers http.Header
	body    map[string]interface{}
}

func newTestServer(t *testing.T, status int, response string, got *captured) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			got.path = r.URL.Path
			got.headers = r.Header.Clone()
			got.body = map[string]interface{}{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got.body))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{BaseURL: srv.URL, UserAgent: "gomarket-sync/test"}, logger.NewNopLogger())
	require.NoError(t, err)
	return client
}

func TestFetchPageSendsCredentialsAndCursor(t *testing.T) {
	var got captured
	client := newTestServer(t, http.StatusOK,
		`{"result":{"items":[{"product_id":1},{"product_id":2}],"last_id":"next-token"}}`, &got)

	ep := CatalogListEndpoints()[0]
	page, err := client.FetchPage(context.Background(), testAccount, ep, models.Filter{}, utils.Cursor{Token: "prev"}, 2)
	require.NoError(t, err)

	assert.Equal(t, "/v3/product/list", got.path)
	assert.Equal(t, "12345", got.headers.Get("Client-Id"))
	assert.Equal(t, "secret-api-key", got.headers.Get("Api-Key"))
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
	assert.Equal(t, "gomarket-sync/test", got.headers.Get("User-Agent"))
	assert.Equal(t, "prev", got.body["last_id"])
	assert.Equal(t, float64(2), got.body["limit"])
	assert.Equal(t, map[string]interface{}{"visibility": "ALL"}, got.body["filter"])

	require.Len(t, page.Records, 2)
	assert.Equal(t, "1", page.Records[0].ID)
	assert.Equal(t, "2", page.Records[1].ID)
	assert.True(t, page.HasMore)
	assert.Equal(t, "next-token", page.Next.Token)
}

func TestFetchPageFirstPageOmitsToken(t *testing.T) {
	var got captured
	client := newTestServer(t, http.StatusOK, `{"result":{"items":[],"last_id":""}}`, &got)

	page, err := client.FetchPage(context.Background(), testAccount, CatalogListEndpoints()[0], models.Filter{}, utils.Cursor{}, 100)
	require.NoError(t, err)

	_, sent := got.body["last_id"]
	assert.False(t, sent)
	assert.Empty(t, page.Records)
	assert.False(t, page.HasMore)
}

func TestFetchPageDerivesLastIDFromRecords(t *testing.T) {
	client := newTestServer(t, http.StatusOK,
		`{"result":{"items":[{"product_id":10},{"product_id":20}]}}`, nil)

	page, err := client.FetchPage(context.Background(), testAccount, CatalogListEndpoints()[1], models.Filter{}, utils.Cursor{}, 2)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Equal(t, "20", page.Next.Token)
}

func TestFetchPageHonoursHasNext(t *testing.T) {
	var got captured
	client := newTestServer(t, http.StatusOK,
		`{"result":{"postings":[{"posting_number":"A-1"},{"posting_number":"A-2"}],"has_next":false}}`, &got)

	rng, err := models.ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	ep := FBSPostingEndpoints()[0]
	page, err := client.FetchPage(context.Background(), testAccount, ep, models.Filter{Range: rng}, utils.Cursor{Offset: 4}, 2)
	require.NoError(t, err)

	assert.Equal(t, float64(4), got.body["offset"])
	filter, ok := got.body["filter"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2024-01-01T00:00:00Z", filter["since"])
	assert.Equal(t, "2024-01-31T23:59:59Z", filter["to"])

	assert.Equal(t, "A-1", page.Records[0].ID)
	assert.False(t, page.HasMore)
	assert.Equal(t, 6, page.Next.Offset)
}

func TestFetchPageTruncatesOversizedPage(t *testing.T) {
	client := newTestServer(t, http.StatusOK,
		`{"items":[{"product_id":1},{"product_id":2},{"product_id":3}],"cursor":"c2"}`, nil)

	page, err := client.FetchPage(context.Background(), testAccount, StockListEndpoints()[0], models.Filter{}, utils.Cursor{}, 2)
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, "c2", page.Next.Token)
}

func TestFetchPageStatusError(t *testing.T) {
	body := `{"message":"` + strings.Repeat("x", 1000) + `"}`
	client := newTestServer(t, http.StatusNotFound, body, nil)

	_, err := client.FetchPage(context.Background(), testAccount, CatalogListEndpoints()[0], models.Filter{}, utils.Cursor{}, 1)
	require.Error(t, err)

	var fe *models.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, models.KindClient, fe.Kind())
	assert.Len(t, fe.Body, 300)
	assert.NotContains(t, err.Error(), "secret-api-key")
}

func TestFetchPageMalformedEnvelope(t *testing.T) {
	client := newTestServer(t, http.StatusOK, `{"result":{"rows":[]}}`, nil)

	_, err := client.FetchPage(context.Background(), testAccount, CatalogListEndpoints()[0], models.Filter{}, utils.Cursor{}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMalformedResponse)
	assert.Equal(t, models.KindMalformed, models.KindOf(err))
}

func TestFetchDetailsIndexesByID(t *testing.T) {
	var got captured
	client := newTestServer(t, http.StatusOK,
		`{"items":[{"id":1,"name":"Кружка"},{"id":2,"name":"Чайник"},{"name":"без id"}]}`, &got)

	details, err := client.FetchDetails(context.Background(), testAccount, InfoEndpoints()[0], []string{"1", "2"})
	require.NoError(t, err)

	assert.Equal(t, []interface{}{float64(1), float64(2)}, got.body["product_id"])
	require.Len(t, details, 2)
	assert.Equal(t, "Кружка", details["1"]["name"])
	assert.Equal(t, "Чайник", details["2"]["name"])
}

func TestFetchDetailsPricesFilter(t *testing.T) {
	var got captured
	client := newTestServer(t, http.StatusOK, `{"items":[{"product_id":7,"price":{"price":"150"}}],"cursor":""}`, &got)

	details, err := client.FetchDetails(context.Background(), testAccount, PriceEndpoints()[0], []string{"7"})
	require.NoError(t, err)

	filter, ok := got.body["filter"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ALL", filter["visibility"])
	assert.Equal(t, []interface{}{float64(7)}, filter["product_id"])
	assert.Equal(t, float64(1), got.body["limit"])
	assert.Contains(t, details, "7")
}

func TestNewClientRejectsBadProxy(t *testing.T) {
	_, err := NewClient(ClientConfig{ProxyURL: "://bad"}, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestFetchPageCancelledContext(t *testing.T) {
	client := newTestServer(t, http.StatusOK, `{"result":{"items":[]}}`, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPage(ctx, testAccount, CatalogListEndpoints()[0], models.Filter{}, utils.Cursor{}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
