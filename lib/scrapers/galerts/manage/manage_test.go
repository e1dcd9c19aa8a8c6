package manage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"galerts/lib/scrapers/galerts/core"
	"galerts/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testAccountRecord = `[null,null,"alice@gmail.com",[null,"delivery settings"],null,"en",null,null,null,null,null,null,null,null,"A1"]`

const testFeedAlertRecord = `[null,"AL1",[null,null,null,[null,"golang","com",[null,"en","US"]],null,3,[[null,2,"",null,1,"en",null,null,null,null,null,"F2",null,null,"A1"]]],"A1"]`

const testEmailAlertRecord = `[null,"AL2",[null,null,null,[null,"bitcoin","com",[null,"de","DE"]],[2,64],2,[[null,1,"alice@gmail.com",[null,null,14],2,"en",null,null,null,null,null,"0",null,null,"A1"]]],"A1"]`

func testStateBlob(alerts string) string {
	alertsContainer := "null"
	if alerts != "" {
		alertsContainer = `[null,[` + alerts + `]]`
	}
	return `[null,` + alertsContainer + `,[null,null,null,null,null,null,[` + testAccountRecord + `]],"TOKEN123"]`
}

type fakeGoogle struct {
	stateRaw string
	signedIn bool

	lastToken  map[string]string
	lastParams map[string]string
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ServiceLogin":
		w.Write([]byte(`<input name="GALX" type="hidden" value="galx-token">`))
	case "/ServiceLoginAuth":
		r.ParseForm()
		if r.PostForm.Get("Passwd") != "hunter2" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		f.signedIn = true
		http.Redirect(w, r, r.PostForm.Get("continue"), http.StatusFound)
	case "/alerts":
		w.Write([]byte(`<html><head><script>window.STATE = ` +
			f.stateRaw + `;</script></head></html>`))
	case "/alerts/create", "/alerts/modify", "/alerts/delete":
		r.ParseForm()
		f.lastToken[r.URL.Path] = r.URL.Query().Get("x")
		f.lastParams[r.URL.Path] = r.PostForm.Get("params")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setupManager(t *testing.T, stateRaw string) (*fakeGoogle, *Manager) {
	cleanup := telemetry.SetupForTesting("test:scrapers/galerts/manage")
	t.Cleanup(cleanup)

	fake := &fakeGoogle{
		stateRaw:   stateRaw,
		lastToken:  map[string]string{},
		lastParams: map[string]string{},
	}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := core.NewClient(context.Background(), core.ClientOptions{
		BaseUrl:     server.URL,
		AccountsUrl: server.URL,
	})
	require.NoError(t, err)

	manager, err := NewManager(context.Background(), client, "alice", "hunter2")
	require.NoError(t, err)
	return fake, manager
}

func TestManagerList(t *testing.T) {
	_, manager := setupManager(t, testStateBlob(testFeedAlertRecord+","+testEmailAlertRecord))

	alerts, err := manager.List(context.Background())
	require.NoError(t, err)

	expected := []Alert{
		{
			Id:        "AL1",
			Query:     "golang",
			Sources:   nil,
			Volume:    VolumeBestResults,
			Delivery:  DeliverFeed,
			Frequency: FreqAsItHappens,
			Language:  "en",
			Region:    "US",
			FeedUrl:   "https://www.google.com/alerts/feeds/A1/F2",
			accountId: "A1",
		},
		{
			Id:    "AL2",
			Query: "bitcoin",
			// 64 is not a known source code, it degrades to the
			// unknown sentinel instead of failing the listing
			Sources:   []Source{SourceNews, SourceUnknown},
			Volume:    VolumeAllResults,
			Delivery:  DeliverEmail,
			Frequency: FreqOnceADay,
			Language:  "de",
			Region:    "DE",
			Email:     "alice@gmail.com",
			accountId: "A1",
		},
	}
	if diff := cmp.Diff(expected, alerts, cmp.AllowUnexported(Alert{})); diff != "" {
		t.Fatalf("listed alerts mismatch (-want +got):\n%s", diff)
	}
}

func TestManagerListNeverCaches(t *testing.T) {
	fake, manager := setupManager(t, testStateBlob(testFeedAlertRecord))
	ctx := context.Background()

	alerts, err := manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	// the next refresh sees server-side changes immediately
	fake.stateRaw = testStateBlob("")
	alerts, err = manager.List(ctx)
	require.NoError(t, err)
	require.Empty(t, alerts)
}

func TestManagerCreateDefaults(t *testing.T) {
	fake, manager := setupManager(t, testStateBlob(""))

	err := manager.Create(context.Background(), CreateAlertOptions{
		Query: "golang",
	})
	require.NoError(t, err)

	require.Equal(t, "TOKEN123", fake.lastToken["/alerts/create"])

	// defaults: feed delivery, as-it-happens, best results, english
	var envelope []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(fake.lastParams["/alerts/create"]), &envelope))
	require.Len(t, envelope, 2)
	require.JSONEq(t, `[
		null,null,null,
		[null,"golang","com",[null,"en","US"],null,null,null,0,1],
		null,
		3,
		[[null,2,"",null,1,"en",null,null,null,null,null,"0",null,null,"A1"]]
	]`, string(envelope[1]))
}

func TestManagerCreateInvalidConfigurations(t *testing.T) {
	fake, manager := setupManager(t, testStateBlob(""))
	ctx := context.Background()

	cases := []CreateAlertOptions{
		{Query: "golang", Delivery: DeliverFeed, Frequency: FreqOnceADay},
		{Query: "golang", Delivery: DeliverFeed, Frequency: FreqOnceAWeek},
		{Query: "golang", Delivery: DeliverUnknown},
		{Query: "golang", Volume: VolumeUnknown},
	}
	for _, opts := range cases {
		err := manager.Create(ctx, opts)
		require.True(t, errors.Is(err, core.ErrValidation), "opts %+v: %v", opts, err)
	}
	require.NotContains(t, fake.lastParams, "/alerts/create")
}

func TestManagerCreateQueryTooLong(t *testing.T) {
	_, manager := setupManager(t, testStateBlob(""))

	long := make([]byte, core.QueryMaxLen+1)
	for i := range long {
		long[i] = 'a'
	}
	err := manager.Create(context.Background(), CreateAlertOptions{Query: string(long)})
	require.True(t, errors.Is(err, core.ErrValidation), "got: %v", err)
}

func TestManagerUpdate(t *testing.T) {
	fake, manager := setupManager(t, testStateBlob(testEmailAlertRecord))
	ctx := context.Background()

	alerts, err := manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	alert := alerts[0]
	alert.Query = "ethereum"
	alert.Frequency = FreqOnceAWeek
	alert.Sources = nil
	err = manager.Update(ctx, alert)
	require.NoError(t, err)

	require.Equal(t, "TOKEN123", fake.lastToken["/alerts/modify"])

	var envelope []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(fake.lastParams["/alerts/modify"]), &envelope))
	require.Len(t, envelope, 3)
	var alertId string
	require.NoError(t, json.Unmarshal(envelope[1], &alertId))
	require.Equal(t, "AL2", alertId)
}

func TestManagerUpdateRequiresListedAlert(t *testing.T) {
	_, manager := setupManager(t, testStateBlob(""))

	err := manager.Update(context.Background(), Alert{
		Id:        "AL1",
		Query:     "golang",
		Delivery:  DeliverFeed,
		Frequency: FreqAsItHappens,
		Volume:    VolumeBestResults,
	})
	require.True(t, errors.Is(err, core.ErrValidation), "got: %v", err)
}

func TestManagerDelete(t *testing.T) {
	fake, manager := setupManager(t, testStateBlob(testFeedAlertRecord))
	ctx := context.Background()

	alerts, err := manager.List(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	err = manager.Delete(ctx, alerts[0])
	require.NoError(t, err)

	require.Equal(t, "TOKEN123", fake.lastToken["/alerts/delete"])
	require.Equal(t, `[null,"AL1"]`, fake.lastParams["/alerts/delete"])
}

func TestManagerDeleteRequiresListedAlert(t *testing.T) {
	_, manager := setupManager(t, testStateBlob(""))

	err := manager.Delete(context.Background(), Alert{})
	require.True(t, errors.Is(err, core.ErrValidation), "got: %v", err)
}
