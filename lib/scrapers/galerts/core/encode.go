package core

import (
	"encoding/json"
	"slices"
	"time"
	"unicode/utf8"
)

// QueryMaxLen is the maximum length of an alert query in characters,
// matching the limit the web interface enforces.
const QueryMaxLen = 2048

// AlertParams are the caller-controlled fields of an alert, expressed in
// wire codes. They are encoded into the positional payload the create and
// modify endpoints expect.
type AlertParams struct {
	Query string
	// nil means "Automatic". Automatic is only representable as a nil
	// list, passing the Automatic code explicitly is a caller error.
	Sources   []int
	Delivery  int
	Frequency int
	Volume    int
	Language  string
	// empty means "any region"
	Region string
}

// ValidateQuery rejects queries the web interface would refuse: anything
// that is not valid utf-8 or longer than QueryMaxLen characters.
func ValidateQuery(query string) error {
	if !utf8.ValidString(query) {
		return validationErrorf("query is not valid utf-8")
	}
	if utf8.RuneCountInString(query) > QueryMaxLen {
		return validationErrorf("query exceeds %d characters", QueryMaxLen)
	}
	return nil
}

// the service numbers weekdays from Sunday (0), the iso calendar from
// Monday (0); this exact transform is part of the wire contract
func encodeWeekday(isoWeekday int) int {
	return (isoWeekday + 1) % 7
}

func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func (p AlertParams) validate() error {
	err := ValidateQuery(p.Query)
	if err != nil {
		return err
	}
	if p.Sources != nil && slices.Contains(p.Sources, Sources.Automatic) {
		return validationErrorf("an explicit source list cannot contain the Automatic source")
	}
	for _, s := range p.Sources {
		if !Sources.Known(s) {
			return validationErrorf("unknown source code %d", s)
		}
	}
	if !DeliveryTypes.Known(p.Delivery) {
		return validationErrorf("unknown delivery type code %d", p.Delivery)
	}
	if !Frequencies.Known(p.Frequency) {
		return validationErrorf("unknown frequency code %d", p.Frequency)
	}
	if !Volumes.Known(p.Volume) {
		return validationErrorf("unknown volume code %d", p.Volume)
	}
	if p.Delivery == DeliveryTypes.Feed && p.Frequency != Frequencies.AsItHappens {
		return validationErrorf("a feed alert can only be delivered as-it-happens")
	}
	return nil
}

// encodeAlertData builds the positional alert payload shared by the
// create and modify endpoints. `account` is the signed-in account the
// alert belongs to, `now` is the utc time used to stamp scheduled
// deliveries.
func encodeAlertData(p AlertParams, account Account, now time.Time) ([]any, error) {
	err := p.validate()
	if err != nil {
		return nil, err
	}

	region := p.Region
	explicitRegion := 1
	if region == "" {
		region = "US"
		explicitRegion = 0
	}

	// for scheduled deliveries the service wants a delivery time of day,
	// and for weekly ones additionally a weekday
	var schedule any
	if p.Frequency != Frequencies.AsItHappens {
		block := []any{nil, nil, now.Hour()}
		if p.Frequency == Frequencies.OnceAWeek {
			block = append(block, encodeWeekday(isoWeekday(now)))
		}
		schedule = block
	}

	email := ""
	if p.Delivery == DeliveryTypes.Email {
		email = account.Email
	}

	var sources any
	if p.Sources != nil {
		sources = p.Sources
	}

	data := []any{
		nil, nil, nil,
		[]any{
			nil,
			p.Query,
			regionDomain,
			[]any{nil, p.Language, region},
			nil, nil, nil,
			explicitRegion,
			1,
		},
		sources,
		p.Volume,
		[]any{
			[]any{
				nil,
				p.Delivery,
				email,
				schedule,
				p.Frequency,
				account.Language,
				nil, nil, nil, nil, nil,
				"0",
				nil, nil,
				account.Id,
			},
		},
	}
	return data, nil
}

// EncodeCreateParams renders the body of the `params` form field for the
// create endpoint: [null, alertData].
func EncodeCreateParams(p AlertParams, account Account, now time.Time) (string, error) {
	data, err := encodeAlertData(p, account, now)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal([]any{nil, data})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// EncodeModifyParams renders the `params` form field for the modify
// endpoint: [null, alertId, alertData].
func EncodeModifyParams(alertId string, p AlertParams, account Account, now time.Time) (string, error) {
	data, err := encodeAlertData(p, account, now)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal([]any{nil, alertId, data})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// EncodeDeleteParams renders the `params` form field for the delete
// endpoint: [null, alertId].
func EncodeDeleteParams(alertId string) (string, error) {
	encoded, err := json.Marshal([]any{nil, alertId})
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
