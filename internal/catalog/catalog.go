package catalog

import (
	"strconv"

	"github.com/savid/iptv-catalog/internal/m3u"
)

const (
	idPrefix = "channel_"

	// ManualCategory holds records synthesised from a bare stream link.
	ManualCategory = "Manual"

	directLinkID       = "direct"
	directLinkName     = "Direct Link"
	streamFallbackID   = "direct_link"
	streamFallbackName = "Direct Stream"
)

// Parse turns playlist text into records in order of appearance. Text without
// any #EXTINF line yields a single direct-link record for sourceURL, or no
// records when sourceURL is empty. Parse never fails.
func Parse(text, sourceURL string) []Record {
	records, _ := ParseWithStats(text, sourceURL)

	return records
}

// ParseWithStats is Parse that also reports the pairing statistics.
func ParseWithStats(text, sourceURL string) ([]Record, m3u.ParseStats) {
	lines := m3u.Lines(text)

	if !m3u.HasMetadata(lines) {
		if sourceURL == "" {
			return []Record{}, m3u.ParseStats{}
		}

		return []Record{DirectLink(sourceURL)}, m3u.ParseStats{Entries: 1}
	}

	entries, stats := m3u.ParseWithStats(lines)

	return Assemble(entries), stats
}

// Assemble converts paired entries into records. Identifiers are sequential
// within one call and are not stable across different playlists.
func Assemble(entries []m3u.Entry) []Record {
	records := make([]Record, 0, len(entries))

	for i, entry := range entries {
		records = append(records, assemble(i, entry))
	}

	return records
}

func assemble(index int, entry m3u.Entry) Record {
	category := entry.Group
	if category == "" {
		category = Uncategorized
	}

	record := Record{
		ID:       idPrefix + strconv.Itoa(index),
		Name:     entry.Name,
		URL:      entry.URL,
		Logo:     entry.Logo,
		Category: category,
	}

	switch Classify(entry.Name, entry.Group) {
	case TypeMovie:
		record.Details = Movie{}
	case TypeSeries:
		record.Details = Series{Seasons: []Season{}}
	case TypeLive:
		record.Details = Live{EPGID: entry.TVGID}
	}

	return record
}

// DirectLink is the record used when the playlist text is a bare stream link.
func DirectLink(url string) Record {
	return Record{
		ID:       directLinkID,
		Name:     directLinkName,
		URL:      url,
		Category: ManualCategory,
		Details:  Live{},
	}
}

// StreamFallback is the record used when a playlist URL could not be fetched
// but looks like a media stream itself.
func StreamFallback(url string) Record {
	return Record{
		ID:       streamFallbackID,
		Name:     streamFallbackName,
		URL:      url,
		Category: ManualCategory,
		Details:  Live{},
	}
}

// ToEntries converts records back into playlist entries for export.
func ToEntries(records []Record) []m3u.Entry {
	entries := make([]m3u.Entry, 0, len(records))

	for _, r := range records {
		group := r.Category
		if group == Uncategorized {
			group = ""
		}

		entries = append(entries, m3u.Entry{
			Attributes: m3u.Attributes{
				Name:  r.Name,
				TVGID: r.EPGID(),
				Logo:  r.Logo,
				Group: group,
			},
			URL: r.URL,
		})
	}

	return entries
}
