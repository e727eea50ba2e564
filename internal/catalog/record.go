// Package catalog turns parsed playlist entries into typed content records
// and answers listing, search and category queries over them.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Uncategorized is assigned to records whose entry had no group-title.
const Uncategorized = "Uncategorized"

// ErrUnknownType is returned when a content type string is not recognised.
var ErrUnknownType = errors.New("unknown content type")

// Type is the content type of a record.
type Type string

const (
	TypeLive   Type = "live"
	TypeMovie  Type = "movie"
	TypeSeries Type = "series"
)

// Types lists every content type in display order.
func Types() []Type {
	return []Type{TypeLive, TypeMovie, TypeSeries}
}

// ParseType converts a string into a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeLive, TypeMovie, TypeSeries:
		return Type(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// Details carries the type-specific payload of a record. It is implemented
// by Live, Movie and Series only.
type Details interface {
	isDetails()
}

// Live is the payload of a live channel.
type Live struct {
	EPGID string
}

// Movie is the payload of an on-demand movie.
type Movie struct{}

// Series is the payload of a series. Seasons is empty until populated.
type Series struct {
	Seasons []Season
}

// Season groups the episodes of one season.
type Season struct {
	Number   int       `json:"number"`
	Episodes []Episode `json:"episodes"`
}

// Episode is a single playable episode.
type Episode struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

func (Live) isDetails()   {}
func (Movie) isDetails()  {}
func (Series) isDetails() {}

// Record is one classified playlist item.
type Record struct {
	ID       string
	Name     string
	URL      string
	Logo     string
	Category string
	Details  Details
}

// Type returns the content type of the record. Records without details are
// treated as live channels.
func (r Record) Type() Type {
	switch r.Details.(type) {
	case Movie:
		return TypeMovie
	case Series:
		return TypeSeries
	default:
		return TypeLive
	}
}

// EPGID returns the guide identifier of a live record.
func (r Record) EPGID() string {
	if live, ok := r.Details.(Live); ok {
		return live.EPGID
	}

	return ""
}

// recordJSON is the flat wire shape of a Record.
type recordJSON struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Logo     string   `json:"logo,omitempty"`
	Category string   `json:"category"`
	Type     Type     `json:"type"`
	EPGID    string   `json:"epgId,omitempty"`
	Seasons  []Season `json:"seasons,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		ID:       r.ID,
		Name:     r.Name,
		URL:      r.URL,
		Logo:     r.Logo,
		Category: r.Category,
		Type:     r.Type(),
	}

	switch d := r.Details.(type) {
	case Live:
		out.EPGID = d.EPGID
	case Series:
		out.Seasons = d.Seasons
	case Movie, nil:
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*r = Record{
		ID:       in.ID,
		Name:     in.Name,
		URL:      in.URL,
		Logo:     in.Logo,
		Category: in.Category,
	}

	switch in.Type {
	case TypeLive:
		r.Details = Live{EPGID: in.EPGID}
	case TypeMovie:
		r.Details = Movie{}
	case TypeSeries:
		seasons := in.Seasons
		if seasons == nil {
			seasons = []Season{}
		}

		r.Details = Series{Seasons: seasons}
	default:
		return fmt.Errorf("record %q: %w: %q", in.ID, ErrUnknownType, in.Type)
	}

	return nil
}
