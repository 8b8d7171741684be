package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/clients"
)

type fakeZoho struct {
	tokenCalls int32
	itemCalls  int32
	rejectOnce int32
}

func (f *fakeZoho) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-123", r.PostForm.Get("refresh_token"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-abc",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	})
	mux.HandleFunc("/inventory/v1/items", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.itemCalls, 1)
		if atomic.CompareAndSwapInt32(&f.rejectOnce, 1, 0) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Zoho-oauthtoken token-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "org-1", r.URL.Query().Get("organization_id"))
		assert.Equal(t, "200", r.URL.Query().Get("per_page"))
		w.Write([]byte(`{
			"code": 0,
			"message": "success",
			"items": [
				{"item_id": "1001", "name": "ROOR Beaker 18mm", "sku": "RR-B18", "rate": 249.99, "stock_on_hand": "7", "status": "active", "brand": "ROOR"},
				{"item_id": "1002", "name": "Hemp Wick", "sku": "HW-10", "rate": "4.50", "stock_on_hand": 3, "available_stock": "", "status": "inactive", "manufacturer": "Bee Line"},
				{"item_id": "", "name": "No id"},
				{"item_id": "1003", "name": "Bad price", "rate": "abc"},
				{"item_id": "1004", "name": "Negative", "rate": -1}
			],
			"page_context": {"page": 1, "per_page": 200, "has_more_page": true}
		}`))
	})
	mux.HandleFunc("/inventory/v1/categories", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"code": 0,
			"categories": [
				{"category_id": "-1", "name": "ROOT"},
				{"category_id": "c1", "name": "Water Pipes"},
				{"category_id": "c2", "name": "  "}
			]
		}`))
	})
	return mux
}

func createTestClient(server *httptest.Server) *Client {
	retry := clients.DefaultRetryConfig()
	retry.MaxRetries = 1
	retry.InitialBackoff = time.Millisecond
	return NewClient(Config{
		ClientID:       "client",
		ClientSecret:   "secret",
		RefreshToken:   "refresh-123",
		OrganizationID: "org-1",
		AccountsURL:    server.URL,
		APIURL:         server.URL + "/",
	}, WithHTTPClient(server.Client()), WithRetrier(clients.NewRetrier(retry)))
}

func TestListItems_ParsesAndValidates(t *testing.T) {
	fake := &fakeZoho{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	page, err := createTestClient(server).ListItems(context.Background(), 1, 0)

	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.Len(t, page.Items, 2)
	assert.Len(t, page.Rejected, 3)

	first := page.Items[0]
	assert.Equal(t, "1001", first.ItemID)
	assert.Equal(t, 249.99, first.Price())
	assert.Equal(t, 7, first.Stock())
	assert.True(t, first.IsActive())
	assert.Equal(t, "ROOR", first.BrandName())

	second := page.Items[1]
	assert.Equal(t, 4.5, second.Price())
	assert.Equal(t, 3, second.Stock())
	assert.False(t, second.IsActive())
	assert.Equal(t, "Bee Line", second.BrandName())
}

func TestListItems_ReusesToken(t *testing.T) {
	fake := &fakeZoho{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()
	client := createTestClient(server)

	_, err := client.ListItems(context.Background(), 1, 0)
	require.NoError(t, err)
	_, err = client.ListItems(context.Background(), 2, 0)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.tokenCalls))
}

func TestListItems_RefreshesOnUnauthorized(t *testing.T) {
	fake := &fakeZoho{rejectOnce: 1}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	page, err := createTestClient(server).ListItems(context.Background(), 1, 0)

	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.tokenCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.itemCalls))
}

func TestListCategories_SkipsRoot(t *testing.T) {
	fake := &fakeZoho{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	categories, err := createTestClient(server).ListCategories(context.Background())

	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "c1", categories[0].CategoryID)
	assert.Equal(t, "Water Pipes", categories[0].Name)
}

func TestRefreshToken_ErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "invalid_code"}`))
	}))
	defer server.Close()

	_, err := createTestClient(server).RefreshToken(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_code")
}

func TestEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v2/token" {
			w.Write([]byte(`{"access_token": "t", "expires_in": 3600}`))
			return
		}
		w.Write([]byte(`{"code": 57, "message": "You are not authorized to perform this operation"}`))
	}))
	defer server.Close()

	_, err := createTestClient(server).ListItems(context.Background(), 1, 50)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 57")
}
