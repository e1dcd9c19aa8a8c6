// Package manage presents a named-constant api over the raw galerts
// core: callers deal in readable enum values, the package translates
// them to and from the wire codes the web interface uses.
package manage

import (
	"context"
	"fmt"

	"galerts/lib/scrapers/galerts/core"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/galerts/manage")

type Source string

const (
	SourceBlogs       Source = "blogs"
	SourceNews        Source = "news"
	SourceWeb         Source = "web"
	SourceVideo       Source = "video"
	SourceBooks       Source = "books"
	SourceDiscussions Source = "discussions"
	SourceUnknown     Source = "unknown"
)

type Volume string

const (
	VolumeAllResults  Volume = "all"
	VolumeBestResults Volume = "best"
	VolumeUnknown     Volume = "unknown"
)

type Delivery string

const (
	DeliverEmail   Delivery = "email"
	DeliverFeed    Delivery = "feed"
	DeliverUnknown Delivery = "unknown"
)

type Frequency string

const (
	FreqAsItHappens Frequency = "as-it-happens"
	FreqOnceADay    Frequency = "once a day"
	FreqOnceAWeek   Frequency = "once a week"
	FreqUnknown     Frequency = "unknown"
)

var sourceCodes = map[Source]int{
	SourceBlogs:       core.Sources.Blogs,
	SourceNews:        core.Sources.News,
	SourceWeb:         core.Sources.Web,
	SourceVideo:       core.Sources.Video,
	SourceBooks:       core.Sources.Books,
	SourceDiscussions: core.Sources.Discussions,
}

var volumeCodes = map[Volume]int{
	VolumeAllResults:  core.Volumes.AllResults,
	VolumeBestResults: core.Volumes.BestResults,
}

var deliveryCodes = map[Delivery]int{
	DeliverEmail: core.DeliveryTypes.Email,
	DeliverFeed:  core.DeliveryTypes.Feed,
}

var frequencyCodes = map[Frequency]int{
	FreqAsItHappens: core.Frequencies.AsItHappens,
	FreqOnceADay:    core.Frequencies.OnceADay,
	FreqOnceAWeek:   core.Frequencies.OnceAWeek,
}

var codeSources = reverse(sourceCodes)
var codeVolumes = reverse(volumeCodes)
var codeDeliveries = reverse(deliveryCodes)
var codeFrequencies = reverse(frequencyCodes)

func reverse[K comparable, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// codeOf translates a caller-facing enum value into its wire code.
// Unknown enum values are a caller error.
func codeOf[K ~string](m map[K]int, value K, what string) (int, error) {
	code, ok := m[value]
	if !ok {
		return 0, fmt.Errorf("%w: unknown %s %q", core.ErrValidation, what, value)
	}
	return code, nil
}

// enumOf translates a wire code back into an enum value. Codes the
// server introduced after this package was written degrade to the
// unknown sentinel instead of failing the whole listing.
func enumOf[V comparable](m map[int]V, code int, unknown V) V {
	value, ok := m[code]
	if !ok {
		return unknown
	}
	return value
}

// Alert is one alert subscription, expressed in enum values. Alerts are
// only constructed by List; they carry an owned copy of the decoded raw
// ids so Update and Delete have everything mutation needs.
type Alert struct {
	Id        string
	Query     string
	Sources   []Source // nil means automatic
	Volume    Volume
	Delivery  Delivery
	Frequency Frequency
	Language  string
	Region    string
	Email     string
	FeedUrl   string

	accountId string
}

func fromCore(raw core.Alert) Alert {
	alert := Alert{
		Id:        raw.Id,
		Query:     raw.Query,
		Volume:    enumOf(codeVolumes, raw.Volume, VolumeUnknown),
		Delivery:  enumOf(codeDeliveries, raw.Delivery, DeliverUnknown),
		Frequency: enumOf(codeFrequencies, raw.Frequency, FreqUnknown),
		Language:  raw.Language,
		Region:    raw.Region,
		Email:     raw.Email,
		FeedUrl:   raw.FeedUrl,
		accountId: raw.AccountId,
	}
	if raw.Sources != nil {
		alert.Sources = make([]Source, len(raw.Sources))
		for i, code := range raw.Sources {
			alert.Sources[i] = enumOf(codeSources, code, SourceUnknown)
		}
	}
	return alert
}

// Manager manages the alerts of one signed-in account. Not safe for
// concurrent use, see core.Client.
type Manager struct {
	Client *core.Client

	email string
}

// NewManager signs the client in and verifies the account is visible to
// the session. Bare local parts get @gmail.com appended.
func NewManager(ctx context.Context, client *core.Client, email, password string) (*Manager, error) {
	ctx, span := tracer.Start(ctx, "NewManager")
	defer span.End()

	email = core.NormalizeEmail(email)

	err := client.LoginEmailPassword(ctx, email, password)
	if err != nil {
		span.SetStatus(codes.Error, "failed to sign in")
		return nil, err
	}
	state, err := client.RefreshWindowState(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to refresh window state")
		return nil, err
	}
	_, ok := state.Accounts[email]
	if !ok {
		span.SetStatus(codes.Error, "account not visible to session")
		return nil, fmt.Errorf("%w: account %s is not visible to this session", core.ErrParseFailure, email)
	}

	return &Manager{Client: client, email: email}, nil
}

func (m *Manager) account() (core.Account, error) {
	account, ok := m.Client.WindowState().Accounts[m.email]
	if !ok {
		return core.Account{}, fmt.Errorf("%w: account %s disappeared from the session state", core.ErrParseFailure, m.email)
	}
	return account, nil
}

// List returns the freshly decoded alerts of the session. Nothing is
// cached, every call fetches and decodes the current state.
func (m *Manager) List(ctx context.Context) ([]Alert, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	state, err := m.Client.RefreshWindowState(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to refresh window state")
		return nil, err
	}

	alerts := make([]Alert, len(state.Alerts))
	for i, raw := range state.Alerts {
		alerts[i] = fromCore(raw)
	}
	return alerts, nil
}

// the delivery/frequency pairs the web interface itself offers
func validateConfiguration(delivery Delivery, frequency Frequency) error {
	switch delivery {
	case DeliverFeed:
		if frequency == FreqAsItHappens {
			return nil
		}
	case DeliverEmail:
		switch frequency {
		case FreqAsItHappens, FreqOnceADay, FreqOnceAWeek:
			return nil
		}
	}
	return fmt.Errorf(
		"%w: %s delivery cannot be combined with %s frequency",
		core.ErrValidation, delivery, frequency,
	)
}

func encodeParams(alert Alert) (core.AlertParams, error) {
	err := core.ValidateQuery(alert.Query)
	if err != nil {
		return core.AlertParams{}, err
	}
	err = validateConfiguration(alert.Delivery, alert.Frequency)
	if err != nil {
		return core.AlertParams{}, err
	}

	params := core.AlertParams{
		Query:    alert.Query,
		Language: alert.Language,
		Region:   alert.Region,
	}
	if alert.Sources != nil {
		params.Sources = make([]int, len(alert.Sources))
		for i, source := range alert.Sources {
			params.Sources[i], err = codeOf(sourceCodes, source, "source")
			if err != nil {
				return core.AlertParams{}, err
			}
		}
	}
	params.Delivery, err = codeOf(deliveryCodes, alert.Delivery, "delivery type")
	if err != nil {
		return core.AlertParams{}, err
	}
	params.Frequency, err = codeOf(frequencyCodes, alert.Frequency, "frequency")
	if err != nil {
		return core.AlertParams{}, err
	}
	params.Volume, err = codeOf(volumeCodes, alert.Volume, "volume")
	if err != nil {
		return core.AlertParams{}, err
	}
	return params, nil
}

type CreateAlertOptions struct {
	Query string
	// nil means automatic
	Sources []Source
	// defaults to feed delivery
	Delivery Delivery
	// defaults to as-it-happens for feed delivery, once a day for email
	Frequency Frequency
	// defaults to only the best results
	Volume Volume
	// defaults to "en"
	Language string
	// empty means any region
	Region string
}

// Create registers a new alert. Validation happens before any request is
// sent; the new alert shows up on the next List.
func (m *Manager) Create(ctx context.Context, opts CreateAlertOptions) error {
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()

	if opts.Delivery == "" {
		opts.Delivery = DeliverFeed
	}
	if opts.Frequency == "" {
		if opts.Delivery == DeliverFeed {
			opts.Frequency = FreqAsItHappens
		} else {
			opts.Frequency = FreqOnceADay
		}
	}
	if opts.Volume == "" {
		opts.Volume = VolumeBestResults
	}
	if opts.Language == "" {
		opts.Language = "en"
	}

	params, err := encodeParams(Alert{
		Query:     opts.Query,
		Sources:   opts.Sources,
		Delivery:  opts.Delivery,
		Frequency: opts.Frequency,
		Volume:    opts.Volume,
		Language:  opts.Language,
		Region:    opts.Region,
	})
	if err != nil {
		span.SetStatus(codes.Error, "invalid alert parameters")
		return err
	}
	account, err := m.account()
	if err != nil {
		span.SetStatus(codes.Error, "failed to resolve account")
		return err
	}

	err = m.Client.CreateAlert(ctx, account, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return err
	}
	return nil
}

// Update persists a modified alert. The alert must have been produced by
// a prior List call from this manager, it carries decoded ids that
// cannot be fabricated by callers.
func (m *Manager) Update(ctx context.Context, alert Alert) error {
	ctx, span := tracer.Start(ctx, "Update")
	defer span.End()

	if alert.Id == "" || alert.accountId == "" {
		return fmt.Errorf("%w: alert was not produced by List", core.ErrValidation)
	}

	params, err := encodeParams(alert)
	if err != nil {
		span.SetStatus(codes.Error, "invalid alert parameters")
		return err
	}
	account, err := m.account()
	if err != nil {
		span.SetStatus(codes.Error, "failed to resolve account")
		return err
	}

	err = m.Client.ModifyAlert(ctx, alert.Id, account, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return nil
}

// Delete removes an alert produced by a prior List call.
func (m *Manager) Delete(ctx context.Context, alert Alert) error {
	ctx, span := tracer.Start(ctx, "Delete")
	defer span.End()

	if alert.Id == "" {
		return fmt.Errorf("%w: alert was not produced by List", core.ErrValidation)
	}

	err := m.Client.DeleteAlert(ctx, alert.Id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	return nil
}
