package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplereader/simplereader/internal/admin"
	"github.com/simplereader/simplereader/internal/api"
	"github.com/simplereader/simplereader/internal/api/handler"
	"github.com/simplereader/simplereader/internal/api/models"
	"github.com/simplereader/simplereader/internal/auth"
	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/featureflags"
	"github.com/simplereader/simplereader/internal/feed"
	"github.com/simplereader/simplereader/internal/provider/resilience"
	"github.com/simplereader/simplereader/internal/publication"
	"github.com/simplereader/simplereader/internal/push"
	"github.com/simplereader/simplereader/internal/tier"
)

const (
	testUsername = "admin"
	testPassword = "correct horse battery staple"
)

var validToken = strings.Repeat("ab", 32)

type recordingTransport struct {
	mu      sync.Mutex
	singles []push.Entry
	batches []push.Batch
}

func (t *recordingTransport) SendSingle(_ context.Context, e push.Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.singles = append(t.singles, e)
	return nil
}

func (t *recordingTransport) SendBatch(_ context.Context, b push.Batch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batches = append(t.batches, b)
	return nil
}

type testServer struct {
	router    http.Handler
	transport *recordingTransport
	flags     *featureflags.Service
}

func newTestServer(t *testing.T, checks ...handler.Check) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	policy := tier.NewPolicy(false)
	devices := device.NewService(device.NewInMemoryRepository(), policy)
	publications := publication.NewService(publication.NewInMemoryRepository())
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     logger,
	})

	registry := resilience.NewRegistry()
	resilience.NewGuard(resilience.GuardConfig{Name: push.ProviderAPNs, Registry: registry})

	transport := &recordingTransport{}
	dispatcher, err := push.NewDispatcher(push.DispatcherConfig{
		Crafter:    push.NewCrafter(policy),
		Transport:  transport,
		KillSwitch: flags,
		Logger:     logger,
	})
	require.NoError(t, err)

	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{SigningKey: "test-secret-key-for-testing-only"}),
		Admins:     auth.NewInMemoryAdminRepository(),
		Logger:     logger,
	})
	require.NoError(t, authService.EnsureAdmin(context.Background(), testUsername, testPassword))

	adminService := admin.NewService(admin.ServiceConfig{
		Devices:      devices,
		Publications: publications,
		Notifier:     dispatcher,
		Logger:       logger,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:            "test",
		BuildTime:          "2026-01-01T00:00:00Z",
		Logger:             logger,
		AuthService:        authService,
		AdminService:       adminService,
		DeviceService:      devices,
		PublicationService: publications,
		FeatureFlagService: flags,
		Feed:               feed.NewAssembler(devices, publications, policy),
		Providers:          registry,
		Checks:             checks,
	})

	return &testServer{router: router, transport: transport, flags: flags}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, http.NoBody)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/v1/admin/login", "", auth.LoginRequest{Username: testUsername, Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_HealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/ops/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	health := decode[models.Health](t, rec)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	s := newTestServer(t, handler.Check{Name: "postgres", Ping: func(context.Context) error { return nil }})
	rec := s.do(t, http.MethodGet, "/v1/ops/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s = newTestServer(t, handler.Check{Name: "redis", Ping: func(context.Context) error { return assert.AnError }})
	rec = s.do(t, http.MethodGet, "/v1/ops/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, models.HealthStatusFail, decode[models.Health](t, rec).Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/ops/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := s.login(t)
	rec = s.do(t, http.MethodGet, "/v1/ops/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[models.SystemStatus](t, rec)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, push.ProviderAPNs, status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].CircuitState)
	assert.Empty(t, status.ActiveDegradationFlags)
}

func TestRouter_SystemStatusReportsKillSwitch(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.flags.SetFlags(context.Background(), []*featureflags.Flag{
		{Key: featureflags.FlagDisablePushSending, Value: true},
	}))

	rec := s.do(t, http.MethodGet, "/v1/ops/status", s.login(t), nil)
	status := decode[models.SystemStatus](t, rec)
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	assert.Equal(t, []string{featureflags.FlagDisablePushSending}, status.ActiveDegradationFlags)
}

func TestRouter_Login(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/admin/login", "", auth.LoginRequest{Username: testUsername, Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = s.do(t, http.MethodPost, "/v1/admin/login", "", auth.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decode[models.Problem](t, rec)
	assert.Len(t, problem.Errors, 2)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/v1/admin/devices", "/v1/admin/publications", "/v1/admin/feed", "/v1/admin/feature-flags"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouter_FeedUnknownDevice(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/feed", "", map[string]string{"deviceId": "ghost"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"unknown"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/report", "", map[string]string{"deviceId": "ghost"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"unknown"}`, rec.Body.String())
}

func TestRouter_DeviceIDWithSurroundingSpaces(t *testing.T) {
	s := newTestServer(t)
	id := " dev-1 "

	rec := s.do(t, http.MethodPost, "/v1/register", "", map[string]string{"deviceId": id, "name": "Anna"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, path := range []string{"/v1/feed", "/v1/report"} {
		rec = s.do(t, http.MethodPost, path, "", map[string]string{"deviceId": id})
		require.Equal(t, http.StatusOK, rec.Code, path)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, "new", body["status"], path)
	}
}

func TestRouter_FeedRequiresDeviceID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/v1/feed", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/register", strings.NewReader("deviceId=A"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_ApprovalFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	rec := s.do(t, http.MethodPost, "/v1/register", "", models.RegisterRequest{DeviceID: "A", Name: "Anna"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"new","message":""}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/admin/publications", token, models.PublishRequest{
		Title:      "Ausgabe 1",
		PDFURL:     "https://cdn.example.org/a1.pdf",
		PreviewURL: "https://cdn.example.org/a1.png",
		SizeBytes:  22_600_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	published := decode[models.ActionResponse](t, rec)
	require.NotNil(t, published.Publication)
	assert.Equal(t, "22.6 MB", published.Publication.FileSize)
	assert.Equal(t, "/v1/admin/publications/"+published.Publication.ID, rec.Header().Get("Location"))

	rec = s.do(t, http.MethodPost, "/v1/feed", "", map[string]string{"deviceId": "A"})
	feedResp := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "new", feedResp["status"])
	assert.NotContains(t, feedResp, "publications")

	rec = s.do(t, http.MethodPut, "/v1/admin/devices/A/tier", token, models.SetTierRequest{Tier: "green", Reason: "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	action := decode[models.ActionResponse](t, rec)
	require.NotNil(t, action.Device)
	assert.Equal(t, "green", action.Device.Tier)
	assert.Equal(t, "ok", action.Device.LastMessage)
	require.NotNil(t, action.Delivered)
	assert.False(t, *action.Delivered)
	assert.Len(t, action.Notices, 2)
	assert.Empty(t, s.transport.singles)

	rec = s.do(t, http.MethodPost, "/v1/report", "", map[string]string{"deviceId": "A"})
	require.Equal(t, http.StatusOK, rec.Code)
	feedResp = decode[map[string]interface{}](t, rec)
	assert.Equal(t, "yellow", feedResp["status"])
	assert.Equal(t, tier.ReportDowngradeMessage, feedResp["message"])
	assert.Len(t, feedResp["publications"], 1)
	assert.Empty(t, s.transport.singles, "report-driven downgrades are not pushed")

	rec = s.do(t, http.MethodGet, "/v1/admin/devices", token, nil)
	list := decode[models.DeviceList](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Items[0].Screenshots)
}

func TestRouter_SetTierValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	s.do(t, http.MethodPost, "/v1/register", "", models.RegisterRequest{DeviceID: "A"})

	rec := s.do(t, http.MethodPut, "/v1/admin/devices/A/tier", token, models.SetTierRequest{Tier: "new"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decode[models.Problem](t, rec)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.Len(t, problem.Errors, 2)

	rec = s.do(t, http.MethodPut, "/v1/admin/devices/ghost/tier", token, models.SetTierRequest{Tier: "red", Reason: "no"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MessageNotifiesDevice(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	s.do(t, http.MethodPost, "/v1/register", "", models.RegisterRequest{DeviceID: "A", Name: "Anna", PushToken: validToken})

	rec := s.do(t, http.MethodPost, "/v1/admin/devices/A/message", token, models.MessageRequest{Message: "Hallo"})
	require.Equal(t, http.StatusOK, rec.Code)
	action := decode[models.ActionResponse](t, rec)
	require.NotNil(t, action.Delivered)
	assert.True(t, *action.Delivered)
	require.Len(t, s.transport.singles, 1)
	assert.Equal(t, "Hallo", s.transport.singles[0].Payload.Alert)
}

func TestRouter_Broadcast(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	s.do(t, http.MethodPost, "/v1/register", "", models.RegisterRequest{DeviceID: "A", Name: "Anna", PushToken: validToken})
	s.do(t, http.MethodPost, "/v1/register", "", models.RegisterRequest{DeviceID: "B", Name: "Bert"})

	rec := s.do(t, http.MethodPost, "/v1/admin/broadcast", token, models.BroadcastRequest{Message: "Neue Ausgabe"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	action := decode[models.ActionResponse](t, rec)
	require.NotNil(t, action.Dispatch)
	assert.Equal(t, []string{"Anna"}, action.Dispatch.Sent)
	assert.Equal(t, []string{"Bert"}, action.Dispatch.Skipped)
	assert.Len(t, s.transport.batches, 1)

	missing := "missing0"
	rec = s.do(t, http.MethodPost, "/v1/admin/broadcast", token, models.BroadcastRequest{Message: "x", PublicationID: &missing})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_PublicationLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	rec := s.do(t, http.MethodPost, "/v1/admin/publications", token, models.PublishRequest{Title: "Ohne Dateien"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/admin/publications", token, models.PublishRequest{
		Title:      "Sommer",
		PDFURL:     "https://cdn.example.org/s.pdf",
		PreviewURL: "https://cdn.example.org/s.png",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[models.ActionResponse](t, rec).Publication.ID

	title := "Sommer (neu)"
	rec = s.do(t, http.MethodPut, "/v1/admin/publications/"+id, token, models.UpdatePublicationRequest{Title: &title})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/admin/publications/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, title, decode[models.Publication](t, rec).Title)

	rec = s.do(t, http.MethodGet, "/v1/admin/feed", token, nil)
	adminFeed := decode[map[string]interface{}](t, rec)
	assert.Len(t, adminFeed["publications"], 1)

	rec = s.do(t, http.MethodDelete, "/v1/admin/publications/"+id, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/publications/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/publications", token, nil)
	assert.Empty(t, decode[models.PublicationList](t, rec).Items)
}

func TestRouter_FeatureFlags(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	rec := s.do(t, http.MethodPut, "/v1/admin/feature-flags", token, featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{{Key: featureflags.FlagDisablePushSending, Value: true}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reason is required")

	rec = s.do(t, http.MethodPut, "/v1/admin/feature-flags", token, featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{{Key: "unknown", Value: true}},
		Reason:  "test",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/v1/admin/feature-flags", token, featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{{Key: featureflags.FlagDisablePushSending, Value: true}},
		Reason:  "APNs certificate rotation",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[featureflags.FlagList](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, true, list.Items[0].Value)

	s.do(t, http.MethodPost, "/v1/register", "", models.RegisterRequest{DeviceID: "A", Name: "Anna", PushToken: validToken})
	rec = s.do(t, http.MethodPost, "/v1/admin/broadcast", token, models.BroadcastRequest{Message: "Hallo"})
	require.Equal(t, http.StatusOK, rec.Code)
	action := decode[models.ActionResponse](t, rec)
	require.NotEmpty(t, action.Notices)
	assert.Equal(t, "warning", action.Notices[0].Level)
	assert.Empty(t, s.transport.batches)

	rec = s.do(t, http.MethodPost, "/v1/admin/feature-flags/invalidate", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
