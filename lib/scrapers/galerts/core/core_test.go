package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"galerts/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeGoogle struct {
	t *testing.T

	email    string
	password string
	stateRaw string

	signedIn bool
	// endpoint path -> value of the `x` query parameter
	lastToken map[string]string
	// endpoint path -> value of the `params` form field
	lastParams map[string]string
}

func newFakeGoogle(t *testing.T, stateRaw string) (*fakeGoogle, *httptest.Server) {
	fake := &fakeGoogle{
		t:          t,
		email:      "alice@gmail.com",
		password:   "hunter2",
		stateRaw:   stateRaw,
		lastToken:  map[string]string{},
		lastParams: map[string]string{},
	}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeGoogle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ServiceLogin":
		w.Write([]byte(`<html><body><form>` +
			`<input name="GALX" type="hidden" value="galx-token">` +
			`</form></body></html>`))

	case "/ServiceLoginAuth":
		r.ParseForm()
		if r.PostForm.Get("GALX") != "galx-token" ||
			r.PostForm.Get("Email") != f.email ||
			r.PostForm.Get("Passwd") != f.password {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		f.signedIn = true
		http.Redirect(w, r, r.PostForm.Get("continue"), http.StatusFound)

	case "/alerts":
		if !f.signedIn {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`<html><head><script>window.STATE = ` +
			f.stateRaw + `;</script></head><body></body></html>`))

	case "/alerts/create", "/alerts/modify", "/alerts/delete":
		if !f.signedIn {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		r.ParseForm()
		f.lastToken[r.URL.Path] = r.URL.Query().Get("x")
		f.lastParams[r.URL.Path] = r.PostForm.Get("params")

	default:
		f.t.Logf("fake google got unexpected path: %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func setupClient(t *testing.T, stateRaw string) (*fakeGoogle, *Client) {
	cleanup := telemetry.SetupForTesting("test:scrapers/galerts/core")
	t.Cleanup(cleanup)

	fake, server := newFakeGoogle(t, stateRaw)
	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:     server.URL,
		AccountsUrl: server.URL,
	})
	require.NoError(t, err)
	return fake, client
}

func TestClientLogin(t *testing.T) {
	_, client := setupClient(t, testStateBlob(""))
	ctx := context.Background()

	err := client.LoginEmailPassword(ctx, "alice@gmail.com", "hunter2")
	require.NoError(t, err)

	state, err := client.RefreshWindowState(ctx)
	require.NoError(t, err)
	require.Equal(t, "TOKEN123", state.X)
	require.Contains(t, state.Accounts, "alice@gmail.com")
	require.Equal(t, state, client.WindowState())
}

func TestClientLoginNormalizesEmail(t *testing.T) {
	_, client := setupClient(t, testStateBlob(""))

	err := client.LoginEmailPassword(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
}

func TestClientLoginRejected(t *testing.T) {
	_, client := setupClient(t, testStateBlob(""))

	err := client.LoginEmailPassword(context.Background(), "alice@gmail.com", "wrong")
	require.ErrorIs(t, err, SignInFailed)
}

func TestClientRefreshWithoutState(t *testing.T) {
	fake, client := setupClient(t, testStateBlob(""))
	fake.signedIn = true
	fake.stateRaw = ""

	_, err := client.RefreshWindowState(context.Background())
	require.True(t, errors.Is(err, ErrParseFailure), "got: %v", err)
}

func TestClientCreateAlert(t *testing.T) {
	fake, client := setupClient(t, testStateBlob(""))
	ctx := context.Background()

	err := client.LoginEmailPassword(ctx, "alice@gmail.com", "hunter2")
	require.NoError(t, err)
	state, err := client.RefreshWindowState(ctx)
	require.NoError(t, err)

	account := state.Accounts["alice@gmail.com"]
	err = client.CreateAlert(ctx, account, AlertParams{
		Query:     "golang",
		Delivery:  DeliveryTypes.Feed,
		Frequency: Frequencies.AsItHappens,
		Volume:    Volumes.BestResults,
		Language:  "en",
	})
	require.NoError(t, err)

	require.Equal(t, "TOKEN123", fake.lastToken["/alerts/create"])
	require.JSONEq(t, `[null,[
		null,null,null,
		[null,"golang","com",[null,"en","US"],null,null,null,0,1],
		null,
		3,
		[[null,2,"",null,1,"en",null,null,null,null,null,"0",null,null,"A1"]]
	]]`, fake.lastParams["/alerts/create"])
}

func TestClientDeleteAlert(t *testing.T) {
	fake, client := setupClient(t, testStateBlob(testFeedAlertRecord))
	ctx := context.Background()

	err := client.LoginEmailPassword(ctx, "alice@gmail.com", "hunter2")
	require.NoError(t, err)

	err = client.DeleteAlert(ctx, "AL1")
	require.NoError(t, err)

	require.Equal(t, "TOKEN123", fake.lastToken["/alerts/delete"])
	require.Equal(t, `[null,"AL1"]`, fake.lastParams["/alerts/delete"])
}

func TestClientValidationBeforeNetwork(t *testing.T) {
	fake, client := setupClient(t, testStateBlob(""))
	ctx := context.Background()

	err := client.LoginEmailPassword(ctx, "alice@gmail.com", "hunter2")
	require.NoError(t, err)
	state, err := client.RefreshWindowState(ctx)
	require.NoError(t, err)

	account := state.Accounts["alice@gmail.com"]
	err = client.CreateAlert(ctx, account, AlertParams{
		Query:     "golang",
		Delivery:  DeliveryTypes.Feed,
		Frequency: Frequencies.OnceADay,
		Volume:    Volumes.BestResults,
		Language:  "en",
	})
	require.True(t, errors.Is(err, ErrValidation), "got: %v", err)
	require.NotContains(t, fake.lastParams, "/alerts/create")
}
