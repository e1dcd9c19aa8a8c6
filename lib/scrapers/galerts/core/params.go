package core

import "sort"

// UnknownName is returned by Param.NameOf for codes that have no
// registered name. Google may add parameter values server-side at any
// time, so reverse lookups degrade to this sentinel instead of failing.
const UnknownName = "unknown"

// Param is a named alert parameter and the set of wire codes Google
// accepts for it. The tables are built once at package init and never
// mutated afterwards, so concurrent reads are safe.
type Param struct {
	names map[int]string
}

func newParam() Param {
	return Param{names: map[int]string{}}
}

func (p Param) add(code int, name string) int {
	p.names[code] = name
	return code
}

func (p Param) NameOf(code int) string {
	name, ok := p.names[code]
	if !ok {
		return UnknownName
	}
	return name
}

func (p Param) Known(code int) bool {
	_, ok := p.names[code]
	return ok
}

func (p Param) KnownCodes() []int {
	codes := make([]int, 0, len(p.names))
	for code := range p.names {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// The code values below are a wire contract with the Google Alerts
// endpoints and must not be altered.

type SourcesParam struct {
	Param
	Automatic   int
	Blogs       int
	News        int
	Web         int
	Video       int
	Books       int
	Discussions int
}

type VolumesParam struct {
	Param
	AllResults  int
	BestResults int
}

type DeliveryTypesParam struct {
	Param
	Email int
	Feed  int
}

type FrequenciesParam struct {
	Param
	AsItHappens int
	OnceADay    int
	OnceAWeek   int
}

var Sources = func() SourcesParam {
	p := SourcesParam{Param: newParam()}
	p.Automatic = p.add(0, "Automatic")
	p.Blogs = p.add(1, "Blogs")
	p.News = p.add(2, "News")
	p.Web = p.add(3, "Web")
	p.Video = p.add(5, "Video")
	p.Books = p.add(6, "Books")
	p.Discussions = p.add(7, "Discussions")
	return p
}()

var Volumes = func() VolumesParam {
	p := VolumesParam{Param: newParam()}
	p.AllResults = p.add(2, "All results")
	p.BestResults = p.add(3, "Only the best results")
	return p
}()

var DeliveryTypes = func() DeliveryTypesParam {
	p := DeliveryTypesParam{Param: newParam()}
	p.Email = p.add(1, "email")
	p.Feed = p.add(2, "RSS feed")
	return p
}()

var Frequencies = func() FrequenciesParam {
	p := FrequenciesParam{Param: newParam()}
	p.AsItHappens = p.add(1, "As-it-happens")
	p.OnceADay = p.add(2, "At most once a day")
	p.OnceAWeek = p.add(3, "At most once a week")
	return p
}()
