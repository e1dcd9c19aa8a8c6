package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The alerts page embeds everything the web interface knows about the
// signed-in session as a positional json array assigned to window.STATE.
// The layout is undocumented and unversioned; the indices below are taken
// from observed server output and are the single source of truth for the
// schema. All decode/encode paths go through these constants, never
// through inline indices.
const (
	stateAlertsContainer   = 1
	stateAccountsContainer = 2
	stateToken             = 3

	// within the alerts container
	alertsList = 1
	// within the accounts container
	accountsList = 6
)

const (
	accountEmail        = 2
	accountDeliveryData = 3
	accountLanguage     = 5
	accountId           = 14
)

const (
	alertRecordId        = 1
	alertRecordData      = 2
	alertRecordAccountId = 3

	alertDataQueryInfo     = 3
	alertDataSources       = 4
	alertDataVolume        = 5
	alertDataDeliveryInfos = 6

	queryInfoQuery  = 1
	queryInfoLocale = 3
	localeLanguage  = 1
	localeRegion    = 2

	deliveryInfoType      = 1
	deliveryInfoEmail     = 2
	deliveryInfoSchedule  = 3
	deliveryInfoFrequency = 4
	deliveryInfoLanguage  = 5
	deliveryInfoFeedId    = 11
	deliveryInfoAccountId = 14
)

// only the google.com endpoint is supported
const regionDomain = "com"
const googleDomain = "google." + regionDomain

// Account is one Google account visible to the signed-in session. It is
// reconstructed from scratch on every window state refresh.
type Account struct {
	Email string
	// the raw delivery settings record, passed through unchanged
	DeliveryData json.RawMessage
	Language     string
	Id           string
}

// Alert is one alert subscription as decoded from the window state.
type Alert struct {
	Id        string
	AccountId string
	Query     string
	Language  string
	Region    string
	// nil means "Automatic" (server-chosen). An explicit empty list is
	// kept distinct: it decodes to an empty non-nil slice and is never
	// promoted to Automatic.
	Sources   []int
	Volume    int
	Delivery  int
	Frequency int
	// populated for email delivery
	Email string
	// populated for feed delivery
	FeedId  string
	FeedUrl string
}

// WindowState is the decoded window.STATE value: the per-session token
// required on every mutating request plus everything the session can see.
// A fresh token must be obtained before every create/modify/delete.
type WindowState struct {
	X        string
	Alerts   []Alert
	Accounts map[string]Account
}

// record gives checked positional access into one decoded array of the
// state blob.
type record []json.RawMessage

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeRecord(raw json.RawMessage, what string) (record, error) {
	var rec record
	err := json.Unmarshal(raw, &rec)
	if err != nil {
		return nil, parseFailuref("%s is not an array: %s", what, err)
	}
	return rec, nil
}

func (r record) at(i int, what string) (json.RawMessage, error) {
	if i >= len(r) {
		return nil, parseFailuref("%s: index %d out of range (len %d)", what, i, len(r))
	}
	return r[i], nil
}

func (r record) str(i int, what string) (string, error) {
	raw, err := r.at(i, what)
	if err != nil {
		return "", err
	}
	var s string
	err = json.Unmarshal(raw, &s)
	if err != nil {
		return "", parseFailuref("%s: index %d is not a string: %s", what, i, err)
	}
	return s, nil
}

func (r record) int(i int, what string) (int, error) {
	raw, err := r.at(i, what)
	if err != nil {
		return 0, err
	}
	var n int
	err = json.Unmarshal(raw, &n)
	if err != nil {
		return 0, parseFailuref("%s: index %d is not an integer: %s", what, i, err)
	}
	return n, nil
}

// DecodeWindowState decodes the raw text of the window.STATE assignment.
// Trailing javascript after the array literal (the closing semicolon) is
// ignored. Decoding fails fast: one malformed record aborts the whole
// listing, since a corrupt entry likely signals a schema change affecting
// every entry.
func DecodeWindowState(raw []byte) (WindowState, error) {
	var top record
	err := json.NewDecoder(bytes.NewReader(raw)).Decode(&top)
	if err != nil {
		return WindowState{}, parseFailuref("window state is not an array: %s", err)
	}

	tokenRaw, err := top.at(stateToken, "window state")
	if err != nil {
		return WindowState{}, err
	}
	var state WindowState
	err = json.Unmarshal(tokenRaw, &state.X)
	if err != nil {
		return WindowState{}, parseFailuref("session token is not a string: %s", err)
	}

	state.Alerts, err = decodeAlerts(top[stateAlertsContainer])
	if err != nil {
		return WindowState{}, err
	}

	accountsRaw, err := top.at(stateAccountsContainer, "window state")
	if err != nil {
		return WindowState{}, err
	}
	state.Accounts, err = decodeAccounts(accountsRaw)
	if err != nil {
		return WindowState{}, err
	}

	return state, nil
}

func decodeAlerts(raw json.RawMessage) ([]Alert, error) {
	// a null alerts container is the ordinary "you have zero alerts"
	// state, not a protocol violation
	if isNull(raw) {
		return []Alert{}, nil
	}

	container, err := decodeRecord(raw, "alerts container")
	if err != nil {
		return nil, err
	}
	listRaw, err := container.at(alertsList, "alerts container")
	if err != nil {
		return nil, err
	}
	list, err := decodeRecord(listRaw, "alerts list")
	if err != nil {
		return nil, err
	}

	alerts := make([]Alert, 0, len(list))
	for i, alertRaw := range list {
		alert, err := decodeAlert(alertRaw)
		if err != nil {
			return nil, fmt.Errorf("alert %d: %w", i, err)
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func decodeAlert(raw json.RawMessage) (Alert, error) {
	rec, err := decodeRecord(raw, "alert record")
	if err != nil {
		return Alert{}, err
	}

	var alert Alert
	alert.Id, err = rec.str(alertRecordId, "alert record")
	if err != nil {
		return Alert{}, err
	}
	alert.AccountId, err = rec.str(alertRecordAccountId, "alert record")
	if err != nil {
		return Alert{}, err
	}

	dataRaw, err := rec.at(alertRecordData, "alert record")
	if err != nil {
		return Alert{}, err
	}
	data, err := decodeRecord(dataRaw, "alert data")
	if err != nil {
		return Alert{}, err
	}

	queryRaw, err := data.at(alertDataQueryInfo, "alert data")
	if err != nil {
		return Alert{}, err
	}
	queryInfo, err := decodeRecord(queryRaw, "query info")
	if err != nil {
		return Alert{}, err
	}
	alert.Query, err = queryInfo.str(queryInfoQuery, "query info")
	if err != nil {
		return Alert{}, err
	}
	localeRaw, err := queryInfo.at(queryInfoLocale, "query info")
	if err != nil {
		return Alert{}, err
	}
	locale, err := decodeRecord(localeRaw, "query locale")
	if err != nil {
		return Alert{}, err
	}
	alert.Language, err = locale.str(localeLanguage, "query locale")
	if err != nil {
		return Alert{}, err
	}
	alert.Region, err = locale.str(localeRegion, "query locale")
	if err != nil {
		return Alert{}, err
	}

	sourcesRaw, err := data.at(alertDataSources, "alert data")
	if err != nil {
		return Alert{}, err
	}
	if !isNull(sourcesRaw) {
		// stays non-nil even when empty, see the Sources field doc
		alert.Sources = []int{}
		err = json.Unmarshal(sourcesRaw, &alert.Sources)
		if err != nil {
			return Alert{}, parseFailuref("sources is not an integer array: %s", err)
		}
	}

	alert.Volume, err = data.int(alertDataVolume, "alert data")
	if err != nil {
		return Alert{}, err
	}

	deliveriesRaw, err := data.at(alertDataDeliveryInfos, "alert data")
	if err != nil {
		return Alert{}, err
	}
	deliveries, err := decodeRecord(deliveriesRaw, "delivery infos")
	if err != nil {
		return Alert{}, err
	}
	if len(deliveries) == 0 {
		return Alert{}, parseFailuref("delivery infos is empty")
	}
	// known limitation: the protocol carries a sequence of delivery
	// channels but only the first is honored, the rest are ignored
	delivery, err := decodeRecord(deliveries[0], "delivery info")
	if err != nil {
		return Alert{}, err
	}

	alert.Delivery, err = delivery.int(deliveryInfoType, "delivery info")
	if err != nil {
		return Alert{}, err
	}
	alert.Email, err = delivery.str(deliveryInfoEmail, "delivery info")
	if err != nil {
		return Alert{}, err
	}
	alert.Frequency, err = delivery.int(deliveryInfoFrequency, "delivery info")
	if err != nil {
		return Alert{}, err
	}

	if alert.Delivery == DeliveryTypes.Feed {
		alert.FeedId, err = delivery.str(deliveryInfoFeedId, "delivery info")
		if err != nil {
			return Alert{}, err
		}
		alert.FeedUrl = FeedUrl(alert.AccountId, alert.FeedId)
	}

	return alert, nil
}

// FeedUrl derives the rss url of a feed alert. The template is part of
// the wire contract.
func FeedUrl(accountId, feedId string) string {
	return "https://www." + googleDomain + "/alerts/feeds/" + accountId + "/" + feedId
}

func decodeAccounts(raw json.RawMessage) (map[string]Account, error) {
	container, err := decodeRecord(raw, "accounts container")
	if err != nil {
		return nil, err
	}
	listRaw, err := container.at(accountsList, "accounts container")
	if err != nil {
		return nil, err
	}
	list, err := decodeRecord(listRaw, "accounts list")
	if err != nil {
		return nil, err
	}

	accounts := make(map[string]Account, len(list))
	for i, accountRaw := range list {
		account, err := decodeAccount(accountRaw)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		accounts[account.Email] = account
	}
	return accounts, nil
}

func decodeAccount(raw json.RawMessage) (Account, error) {
	rec, err := decodeRecord(raw, "account record")
	if err != nil {
		return Account{}, err
	}

	var account Account
	account.Email, err = rec.str(accountEmail, "account record")
	if err != nil {
		return Account{}, err
	}
	deliveryRaw, err := rec.at(accountDeliveryData, "account record")
	if err != nil {
		return Account{}, err
	}
	account.DeliveryData = deliveryRaw
	account.Language, err = rec.str(accountLanguage, "account record")
	if err != nil {
		return Account{}, err
	}
	account.Id, err = rec.str(accountId, "account record")
	if err != nil {
		return Account{}, err
	}
	return account, nil
}
