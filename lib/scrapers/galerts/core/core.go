package core

import (
	"bytes"
	"context"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"galerts/lib/htmlutil"
	"galerts/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const stateVariable = "window.STATE"

// Client is an authenticated session against the Google Alerts web
// interface. There is no public alerts API, so everything goes through
// the same pages a browser would load.
//
// A Client is not safe for concurrent use, every operation refreshes and
// replaces the held window state.
type Client struct {
	Http *resty.Client

	accountsUrl *url.URL
	state       WindowState
}

type ClientOptions struct {
	// defaults to https://www.google.com
	BaseUrl string
	// defaults to https://accounts.google.com, overridable for tests
	AccountsUrl string
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://www." + googleDomain
	}
	if opts.AccountsUrl == "" {
		opts.AccountsUrl = "https://accounts." + googleDomain
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	accountsUrl, err := url.Parse(opts.AccountsUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(
		baseUrl.Hostname(), accountsUrl.Hostname(),
	))
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/galerts/http")
	if restyInstrumentOutput != nil {
		restyInstrumentOutput(client)
	}

	c := &Client{
		Http:        client,
		accountsUrl: accountsUrl,
	}
	return c, nil
}

// NormalizeEmail appends @gmail.com to bare local parts, matching what
// the sign-in form does.
func NormalizeEmail(email string) string {
	if !strings.Contains(email, "@") {
		return email + "@gmail.com"
	}
	return email
}

func unexpectedResponse(res *resty.Response) error {
	return &UnexpectedResponseError{
		Status:  res.StatusCode(),
		Headers: res.Header(),
		Body:    res.Body(),
	}
}

// LoginEmailPassword obtains a session cookie for the account. The
// password is sent once over the authentication endpoint and discarded.
func (c *Client) LoginEmailPassword(ctx context.Context, email, password string) error {
	ctx, span := tracer.Start(ctx, "client:LoginEmailPassword")
	defer span.End()

	loginUrl := c.accountsUrl.JoinPath("ServiceLogin").String()
	authUrl := c.accountsUrl.JoinPath("ServiceLoginAuth").String()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(loginUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch sign in page")
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse sign in page html")
		return err
	}

	// GALX is a hidden anti-forgery input on the sign in form, echoed
	// back on authentication
	galx := doc.Find("input[name=GALX]").AttrOr("value", "")

	res, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"Email":    NormalizeEmail(email),
			"Passwd":   password,
			"service":  "alerts",
			"continue": c.Http.BaseURL + "/alerts?hl=en&gl=us",
			"GALX":     galx,
		}).
		Post(authUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make sign in request")
		return err
	}

	finalUrl := ""
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalUrl = res.RawResponse.Request.URL.String()
	}
	if res.StatusCode() == 403 || finalUrl == authUrl {
		span.SetStatus(codes.Error, SignInFailed.Error())
		return SignInFailed
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "unexpected sign in response")
		return unexpectedResponse(res)
	}

	return nil
}

// RefreshWindowState fetches the alerts page and replaces the held
// session state with a freshly decoded one. Mutating operations call
// this themselves so they always carry a current token, callers only
// need it for listing.
func (c *Client) RefreshWindowState(ctx context.Context) (WindowState, error) {
	ctx, span := tracer.Start(ctx, "client:RefreshWindowState")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/alerts?hl=en&gl=us")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch alerts page")
		return WindowState{}, err
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "unexpected alerts page response")
		return WindowState{}, unexpectedResponse(res)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse alerts page html")
		return WindowState{}, err
	}

	blob, err := htmlutil.FindScriptAssignment(doc, stateVariable)
	if err != nil {
		span.SetStatus(codes.Error, "failed to locate window state")
		return WindowState{}, parseFailuref("%s", err)
	}

	state, err := DecodeWindowState([]byte(blob))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode window state")
		return WindowState{}, err
	}

	c.state = state
	return state, nil
}

// WindowState returns the state decoded by the last refresh.
func (c *Client) WindowState() WindowState {
	return c.state
}

func (c *Client) submitParams(ctx context.Context, endpoint, token, params string) error {
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("x", token).
		SetFormData(map[string]string{"params": params}).
		Post(endpoint)
	if err != nil {
		return err
	}
	if res.StatusCode() != 200 {
		return unexpectedResponse(res)
	}
	return nil
}

// CreateAlert registers a new alert for the given account. The window
// state is refreshed first to obtain a current token.
func (c *Client) CreateAlert(ctx context.Context, account Account, p AlertParams) error {
	ctx, span := tracer.Start(ctx, "client:CreateAlert")
	defer span.End()

	params, err := EncodeCreateParams(p, account, time.Now().UTC())
	if err != nil {
		span.SetStatus(codes.Error, "failed to encode alert")
		return err
	}
	state, err := c.RefreshWindowState(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to refresh window state")
		return err
	}
	err = c.submitParams(ctx, "/alerts/create", state.X, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create request failed")
		return err
	}
	return nil
}

// ModifyAlert overwrites an existing alert with the given parameters.
func (c *Client) ModifyAlert(ctx context.Context, alertId string, account Account, p AlertParams) error {
	ctx, span := tracer.Start(ctx, "client:ModifyAlert")
	defer span.End()

	params, err := EncodeModifyParams(alertId, p, account, time.Now().UTC())
	if err != nil {
		span.SetStatus(codes.Error, "failed to encode alert")
		return err
	}
	state, err := c.RefreshWindowState(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to refresh window state")
		return err
	}
	err = c.submitParams(ctx, "/alerts/modify", state.X, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "modify request failed")
		return err
	}
	return nil
}

// DeleteAlert removes an existing alert.
func (c *Client) DeleteAlert(ctx context.Context, alertId string) error {
	ctx, span := tracer.Start(ctx, "client:DeleteAlert")
	defer span.End()

	state, err := c.RefreshWindowState(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to refresh window state")
		return err
	}
	params, err := EncodeDeleteParams(alertId)
	if err != nil {
		return err
	}
	err = c.submitParams(ctx, "/alerts/delete", state.X, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete request failed")
		return err
	}
	return nil
}
