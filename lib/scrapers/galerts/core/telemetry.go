package core

import (
	"galerts/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/galerts/core")

var restyInstrumentOutput func(client *resty.Client)

// SetRestyInstrumentOutput makes every client constructed afterwards
// write full request/response transcripts to `out`. Used by the CLI's
// verbose mode.
func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = func(client *resty.Client) {
		restyutil.InstrumentClient(client, out)
	}
}
