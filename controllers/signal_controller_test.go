package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go_signals_project/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *services.FileStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := services.NewFileStore(filepath.Join(t.TempDir(), "database.json"))
	require.NoError(t, err)

	router := gin.New()
	sc := NewSignalController(store, services.NewEventHub())

	api := router.Group("/api")
	api.GET("/ativos", sc.GetAssets)
	api.POST("/ativos", sc.AddAsset)
	api.GET("/disparos", sc.GetEntries)
	api.POST("/disparos", sc.AddEntry)

	return router, store
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetAssetsReturnsSeededDefaults(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/ativos", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var assets []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assets))
	assert.Contains(t, assets, "BTC/USD")
	assert.Contains(t, assets, "ETH/USDT")
}

func TestAddAsset(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/ativos", `{"ativo":"ADA/USD"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status string   `json:"status"`
		Ativos []string `json:"ativos"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Contains(t, resp.Ativos, "ADA/USD")
}

func TestAddAssetRejectsDuplicateAndInvalid(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"duplicate", `{"ativo":"BTC/USD"}`},
		{"empty", `{"ativo":""}`},
		{"whitespace", `{"ativo":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/ativos", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp["status"])
			assert.Equal(t, "Ativo inválido ou já existe.", resp["message"])
		})
	}
}

func TestAddEntry(t *testing.T) {
	router, store := setupTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/disparos", `{"horario":"14:30","ativo":"BTC/USD","direcao":"COMPRA"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Status   string `json:"status"`
		Disparos []struct {
			Horario string `json:"horario"`
			Ativo   string `json:"ativo"`
			Direcao string `json:"direcao"`
		} `json:"disparos"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Disparos, 1)
	assert.Equal(t, "14:30", resp.Disparos[0].Horario)
	assert.Equal(t, "COMPRA", resp.Disparos[0].Direcao)

	entries, err := store.ListPendingEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestAddEntryRejectsInvalidPayloads(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad horario", `{"horario":"25:99","ativo":"BTC/USD","direcao":"COMPRA"}`},
		{"bad direcao", `{"horario":"14:30","ativo":"BTC/USD","direcao":"HOLD"}`},
		{"missing ativo", `{"horario":"14:30","ativo":"","direcao":"COMPRA"}`},
		{"not json", `horario=14:30`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/disparos", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "error", resp["status"])
		})
	}
}

func TestAddEntryRejectsDuplicateTriple(t *testing.T) {
	router, _ := setupTestRouter(t)

	body := `{"horario":"14:30","ativo":"BTC/USD","direcao":"COMPRA"}`
	w := doRequest(router, http.MethodPost, "/api/disparos", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodPost, "/api/disparos", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Disparo já agendado.", resp["message"])

	// Same time and asset with the opposite direction is a distinct signal
	w = doRequest(router, http.MethodPost, "/api/disparos", `{"horario":"14:30","ativo":"BTC/USD","direcao":"VENDA"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetEntriesEmptyByDefault(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/disparos", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var entries []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}
