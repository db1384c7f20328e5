package admin_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplereader/simplereader/internal/admin"
	"github.com/simplereader/simplereader/internal/auth"
	"github.com/simplereader/simplereader/internal/device"
	"github.com/simplereader/simplereader/internal/events"
	"github.com/simplereader/simplereader/internal/feed"
	"github.com/simplereader/simplereader/internal/publication"
	"github.com/simplereader/simplereader/internal/push"
	"github.com/simplereader/simplereader/internal/tier"
)

var validToken = strings.Repeat("a1", 32)

type recordingTransport struct {
	mu      sync.Mutex
	singles []push.Entry
	batches []push.Batch
	err     error
}

func (t *recordingTransport) SendSingle(_ context.Context, e push.Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.singles = append(t.singles, e)
	return t.err
}

func (t *recordingTransport) SendBatch(_ context.Context, b push.Batch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batches = append(t.batches, b)
	return t.err
}

type listFailingRepository struct {
	*device.InMemoryRepository
}

func (listFailingRepository) List(context.Context) ([]*device.Device, error) {
	return nil, errors.New("db down")
}

type killSwitch bool

func (k killSwitch) IsPushSendingDisabled(context.Context) bool { return bool(k) }

type fixture struct {
	admin        *admin.Service
	devices      *device.Service
	publications *publication.Service
	feed         *feed.Assembler
	transport    *recordingTransport
	recorder     *events.Recorder
}

func newFixture(t *testing.T, allowNew bool, disabled bool) *fixture {
	t.Helper()

	policy := tier.NewPolicy(allowNew)
	devices := device.NewService(device.NewInMemoryRepository(), policy)
	publications := publication.NewService(publication.NewInMemoryRepository())
	transport := &recordingTransport{}

	dispatcher, err := push.NewDispatcher(push.DispatcherConfig{
		Crafter:    push.NewCrafter(policy),
		Transport:  transport,
		KillSwitch: killSwitch(disabled),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	recorder := events.NewRecorder()

	return &fixture{
		admin: admin.NewService(admin.ServiceConfig{
			Devices:      devices,
			Publications: publications,
			Notifier:     dispatcher,
			Events:       recorder,
			Logger:       zerolog.Nop(),
		}),
		devices:      devices,
		publications: publications,
		feed:         feed.NewAssembler(devices, publications, policy),
		transport:    transport,
		recorder:     recorder,
	}
}

func (f *fixture) register(t *testing.T, id, name, token string) {
	t.Helper()
	_, _, err := f.devices.Register(context.Background(), device.RegisterInput{ID: id, Name: name, PushToken: token})
	require.NoError(t, err)
}

func TestSetTier_ApprovalScenario(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()

	f.register(t, "A", "Anna", "")
	_, err := f.admin.Publish(ctx, publication.CreateInput{
		Title:      "Ausgabe 1",
		PDFURL:     "https://cdn.example.org/a1.pdf",
		PreviewURL: "https://cdn.example.org/a1.png",
	}, false, "")
	require.NoError(t, err)

	id := "A"
	resp, err := f.feed.Assemble(ctx, &id)
	require.NoError(t, err)
	assert.Equal(t, string(tier.New), resp.Status)
	assert.Nil(t, resp.Publications)

	out, err := f.admin.SetTier(ctx, "A", tier.Green, "ok")
	require.NoError(t, err)
	assert.False(t, out.Delivered, "device without token is not notified")
	assert.Equal(t, tier.Green, out.Device.Tier)
	require.Len(t, out.Notices, 2)
	assert.Equal(t, admin.NoticeInfo, out.Notices[0].Level)
	assert.Contains(t, out.Notices[0].Text, "Grün")
	assert.Contains(t, out.Notices[0].Text, "ok")
	assert.Equal(t, admin.NoticeWarning, out.Notices[1].Level)
	assert.Empty(t, f.transport.singles)

	resp, err = f.feed.Assemble(ctx, &id)
	require.NoError(t, err)
	assert.Equal(t, string(tier.Green), resp.Status)
	require.NotNil(t, resp.Message)
	assert.Equal(t, "ok", *resp.Message)
	assert.Len(t, resp.Publications, 1)

	tr, err := f.devices.Report(ctx, "A", time.Now())
	require.NoError(t, err)
	assert.Equal(t, tier.Yellow, tr.Device.Tier)

	resp, err = f.feed.ForDevice(ctx, tr.Device)
	require.NoError(t, err)
	assert.Equal(t, string(tier.Yellow), resp.Status)
	assert.Len(t, resp.Publications, 1)
}

func TestSetTier_NotifiesDeviceWithToken(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := auth.WithAdmin(context.Background(), "admin")
	f.register(t, "B", "Bert", validToken)

	out, err := f.admin.SetTier(ctx, "B", tier.Red, "Screenshots sind nicht erlaubt")
	require.NoError(t, err)
	assert.True(t, out.Delivered)
	require.Len(t, f.transport.singles, 1)
	assert.Equal(t, validToken, f.transport.singles[0].Token)
	assert.Equal(t, "Screenshots sind nicht erlaubt", f.transport.singles[0].Payload.Alert)

	recorded := f.recorder.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.KindTierChanged, recorded[0].Kind)
	assert.Equal(t, "admin", recorded[0].Actor)
	assert.Equal(t, "new", recorded[0].From)
	assert.Equal(t, "red", recorded[0].To)
}

func TestSetTier_ValidationBeforeWrite(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	f.register(t, "A", "Anna", validToken)

	_, err := f.admin.SetTier(ctx, "A", tier.Green, "  ")
	var validationErr *admin.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "reason", validationErr.Errors[0].Field)

	stored, err := f.devices.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, tier.New, stored.Tier)
	assert.Empty(t, f.transport.singles)
	assert.Empty(t, f.recorder.Events())
}

func TestSetTier_UnknownDevice(t *testing.T) {
	f := newFixture(t, false, false)

	_, err := f.admin.SetTier(context.Background(), "ghost", tier.Green, "ok")
	assert.ErrorIs(t, err, admin.ErrNotFound)
	assert.ErrorIs(t, err, device.ErrDeviceNotFound)
}

func TestSetTier_DispatchFailureKeepsState(t *testing.T) {
	f := newFixture(t, false, false)
	f.transport.err = errors.New("connection reset")
	ctx := context.Background()
	f.register(t, "A", "Anna", validToken)

	out, err := f.admin.SetTier(ctx, "A", tier.Green, "ok")
	require.NoError(t, err)
	assert.False(t, out.Delivered)
	assert.Equal(t, admin.NoticeWarning, out.Notices[len(out.Notices)-1].Level)

	stored, err := f.devices.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, tier.Green, stored.Tier)
}

func TestMessage(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	f.register(t, "A", "Anna", validToken)

	out, err := f.admin.Message(ctx, "A", "Hallo")
	require.NoError(t, err)
	assert.True(t, out.Delivered)
	assert.Equal(t, "Hallo", out.Device.LastMessage)
	assert.Equal(t, tier.New, out.Device.Tier)
}

func TestBroadcast_PartitionsDevices(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	f.register(t, "A", "Anna", validToken)
	f.register(t, "B", "Bert", "short")
	f.register(t, "C", "Carla", strings.Repeat("b2", 32))

	out, err := f.admin.Broadcast(ctx, "Neue Ausgabe", nil)
	require.NoError(t, err)
	require.NotNil(t, out.Result)
	assert.ElementsMatch(t, []string{"Anna", "Carla"}, out.Result.Sent)
	assert.Equal(t, []string{"Bert"}, out.Result.Skipped)
	require.Len(t, f.transport.batches, 1)
	assert.Equal(t, 2, f.transport.batches[0].Len())
	assert.Equal(t, []events.Kind{events.KindBroadcastSent}, f.recorder.Kinds())
}

func TestBroadcast_AttachesPublicationOnlyForAdmittedTiers(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	f.register(t, "A", "Anna", validToken)
	f.register(t, "B", "Bert", strings.Repeat("c3", 32))
	_, err := f.admin.SetTier(ctx, "A", tier.Green, "ok")
	require.NoError(t, err)

	out, err := f.admin.Publish(ctx, publication.CreateInput{
		Title:      "Sommer",
		PDFURL:     "https://cdn.example.org/s.pdf",
		PreviewURL: "https://cdn.example.org/s.png",
	}, true, "")
	require.NoError(t, err)
	assert.Equal(t, "sommer0", out.Publication.ID)

	require.Len(t, f.transport.batches, 1)
	for _, e := range f.transport.batches[0].Entries() {
		assert.Equal(t, "Sommer", e.Payload.Alert)
		switch e.DeviceID {
		case "A":
			require.NotNil(t, e.Payload.Publication)
			assert.Equal(t, "sommer0", e.Payload.Publication.ID)
		case "B":
			assert.Nil(t, e.Payload.Publication)
		}
	}
}

func TestBroadcast_UnknownPublication(t *testing.T) {
	f := newFixture(t, false, false)
	missing := "nothing0"

	_, err := f.admin.Broadcast(context.Background(), "Hallo", &missing)
	assert.ErrorIs(t, err, admin.ErrNotFound)
}

func TestBroadcast_RequiresMessage(t *testing.T) {
	f := newFixture(t, false, false)

	_, err := f.admin.Broadcast(context.Background(), " ", nil)
	var validationErr *admin.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestBroadcast_KillSwitch(t *testing.T) {
	f := newFixture(t, false, true)
	ctx := context.Background()
	f.register(t, "A", "Anna", validToken)

	out, err := f.admin.Broadcast(ctx, "Hallo", nil)
	require.NoError(t, err)
	assert.Empty(t, f.transport.batches)
	require.Len(t, out.Notices, 1)
	assert.Equal(t, admin.NoticeWarning, out.Notices[0].Level)
}

func TestPublish_ValidationError(t *testing.T) {
	f := newFixture(t, false, false)

	_, err := f.admin.Publish(context.Background(), publication.CreateInput{}, true, "")
	var validationErr *admin.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.NotEmpty(t, validationErr.Errors)
	assert.Empty(t, f.transport.batches)
}

func TestDeletes(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()
	f.register(t, "A", "Anna", "")

	_, err := f.admin.DeleteDevice(ctx, "A")
	require.NoError(t, err)
	_, err = f.admin.DeleteDevice(ctx, "A")
	assert.ErrorIs(t, err, admin.ErrNotFound)

	_, err = f.admin.DeletePublication(ctx, "missing0")
	assert.ErrorIs(t, err, admin.ErrNotFound)

	assert.Equal(t, []events.Kind{events.KindDeviceDeleted}, f.recorder.Kinds())
}

func TestUpdatePublication(t *testing.T) {
	f := newFixture(t, false, false)
	ctx := context.Background()

	created, err := f.admin.Publish(ctx, publication.CreateInput{
		Title:      "Ausgabe 1",
		PDFURL:     "https://cdn.example.org/a1.pdf",
		PreviewURL: "https://cdn.example.org/a1.png",
	}, false, "")
	require.NoError(t, err)

	title := "Ausgabe 1 (korrigiert)"
	out, err := f.admin.UpdatePublication(ctx, created.Publication.ID, publication.UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, out.Publication.Title)
	assert.Empty(t, f.transport.batches, "updates are not broadcast")

	_, err = f.admin.UpdatePublication(ctx, "missing0", publication.UpdateInput{Title: &title})
	assert.ErrorIs(t, err, admin.ErrNotFound)

	assert.Equal(t, []events.Kind{events.KindPublicationPublished, events.KindPublicationUpdated}, f.recorder.Kinds())
}

func TestPublish_DeviceListFailureKeepsPublication(t *testing.T) {
	policy := tier.NewPolicy(false)
	devices := device.NewService(listFailingRepository{device.NewInMemoryRepository()}, policy)
	publications := publication.NewService(publication.NewInMemoryRepository())
	transport := &recordingTransport{}
	dispatcher, err := push.NewDispatcher(push.DispatcherConfig{
		Crafter:   push.NewCrafter(policy),
		Transport: transport,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)

	svc := admin.NewService(admin.ServiceConfig{
		Devices:      devices,
		Publications: publications,
		Notifier:     dispatcher,
		Logger:       zerolog.Nop(),
	})
	ctx := context.Background()

	out, err := svc.Publish(ctx, publication.CreateInput{
		Title:      "Ausgabe 1",
		PDFURL:     "https://cdn.example.org/a1.pdf",
		PreviewURL: "https://cdn.example.org/a1.png",
		SizeBytes:  1024,
	}, true, "")
	require.NoError(t, err)
	require.NotNil(t, out.Publication)
	assert.Nil(t, out.Result)
	assert.Equal(t, admin.NoticeWarning, out.Notices[len(out.Notices)-1].Level)
	assert.Empty(t, transport.batches)

	stored, err := publications.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	out, err = svc.Broadcast(ctx, "Hallo", nil)
	require.NoError(t, err)
	assert.Equal(t, admin.NoticeWarning, out.Notices[0].Level)
}
