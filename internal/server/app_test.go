package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pankajkandpal99/web-scrapper/internal/config"
)

const testPage = `<html><head><title>Acme Corp</title>
<meta name="description" content="We build rockets"></head>
<body><h1>Acme</h1><p>Contact hello@acme.test</p><a href="/about">About</a></body></html>`

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server:  config.ServerConfig{Port: 8080, RequestTimeoutSeconds: 30},
		Fetch:   config.FetchConfig{UserAgent: "test-agent", TimeoutSeconds: 5},
		Scraper: config.ScraperConfig{MaxBulk: 20, HistoryLimit: 100},
		Quota:   config.QuotaConfig{Enabled: true, Backend: config.BackendMemory, PerHour: 100},
		Storage: config.StorageConfig{
			Backend:     config.BackendMemory,
			ArchiveHTML: true,
			BlobBackend: config.BackendLocal,
			LocalDir:    t.TempDir(),
			Prefix:      "pages",
		},
		Events: config.EventsConfig{Backend: config.BackendMemory, Topic: "scrapes"},
	}
}

func TestBuildAndServeEndToEnd(t *testing.T) {
	t.Parallel()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testPage))
	}))
	defer site.Close()

	cfg := memoryConfig(t)
	require.NoError(t, cfg.Validate())
	app, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close(context.Background())

	body := `{"url":"` + site.URL + `/"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scraper", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Data struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Metadata struct {
				StatusCode  int    `json:"statusCode"`
				UsedBrowser bool   `json:"usedBrowser"`
				ArchiveURI  string `json:"archiveUri"`
			} `json:"metadata"`
			CompanyInfo struct {
				Contact struct {
					Email string `json:"email"`
				} `json:"contact"`
			} `json:"companyInfo"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.ID)
	require.Equal(t, "Acme Corp", env.Data.Title)
	require.Equal(t, http.StatusOK, env.Data.Metadata.StatusCode)
	require.False(t, env.Data.Metadata.UsedBrowser)
	require.Equal(t, "hello@acme.test", env.Data.CompanyInfo.Contact.Email)

	archived := strings.TrimPrefix(env.Data.Metadata.ArchiveURI, "file://")
	require.True(t, strings.HasPrefix(archived, cfg.Storage.LocalDir), archived)
	raw, err := os.ReadFile(filepath.Clean(archived))
	require.NoError(t, err)
	require.Equal(t, testPage, string(raw))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scraper/history", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), env.Data.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/scraper/history", nil)
	req.Header.Set("X-User-ID", "someone-else")
	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), env.Data.ID)
}

func TestBuildFailsOnUnreachableDependencies(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Storage.LocalDir = ""
	_, err := Build(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Server.Port = 0
	app, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.Run(ctx))
}
