// Package m3u provides tolerant parsing and encoding of M3U playlist files.
package m3u

import (
	"fmt"
	"strings"

	"github.com/grafana/regexp"
)

const (
	// HeaderTag opens an extended M3U playlist.
	HeaderTag = "#EXTM3U"
	// MetadataTag opens a metadata line describing the next stream reference.
	MetadataTag = "#EXTINF:"
	// UnnamedName is used when a metadata line carries no display name.
	UnnamedName = "Unnamed"

	commentMarker = "#"
)

var (
	tvgIDPattern      = attributePattern("tvg-id")
	tvgNamePattern    = attributePattern("tvg-name")
	tvgLogoPattern    = attributePattern("tvg-logo")
	groupTitlePattern = attributePattern("group-title")

	// danglingKeyPattern matches a value that ran into the next attribute's
	// key because its own closing quote is missing.
	danglingKeyPattern = regexp.MustCompile(`\s[\w-]+\s*=\s*$`)
)

// Attributes holds the values extracted from one #EXTINF line.
// Empty strings mean the attribute was absent or malformed.
type Attributes struct {
	Name    string
	TVGID   string
	TVGName string
	Logo    string
	Group   string
}

// Entry is one metadata line paired with its stream reference.
type Entry struct {
	Attributes
	URL string
}

// ParseStats counts what the pairing pass kept and dropped.
type ParseStats struct {
	Entries          int
	OrphanedMetadata int
	OrphanedURLs     int
}

type pairingState int

const (
	awaitingMetadata pairingState = iota
	haveMetadata
)

// Lines splits playlist text on any line ending, trims every line and drops
// the empty ones.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))

	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines
}

// HasMetadata reports whether any line is an #EXTINF metadata line.
func HasMetadata(lines []string) bool {
	for _, line := range lines {
		if isMetadata(line) {
			return true
		}
	}

	return false
}

// Parse pairs every metadata line with the next non-comment line.
func Parse(lines []string) []Entry {
	entries, _ := ParseWithStats(lines)

	return entries
}

// ParseWithStats is Parse that also reports how many lines were dropped.
// Metadata without a following URL and URLs without preceding metadata are
// discarded; a second metadata line replaces a pending one.
func ParseWithStats(lines []string) ([]Entry, ParseStats) {
	entries := make([]Entry, 0, len(lines)/2)
	stats := ParseStats{}
	state := awaitingMetadata

	var pending Attributes

	for _, line := range lines {
		switch {
		case isMetadata(line):
			if state == haveMetadata {
				stats.OrphanedMetadata++
			}

			pending = ExtractAttributes(line)
			state = haveMetadata
		case strings.HasPrefix(line, commentMarker):
			// #EXTM3U, #EXTGRP, #EXTVLCOPT and friends carry nothing we pair on.
		case state == haveMetadata:
			entries = append(entries, Entry{Attributes: pending, URL: line})
			pending = Attributes{}
			state = awaitingMetadata
		default:
			stats.OrphanedURLs++
		}
	}

	if state == haveMetadata {
		stats.OrphanedMetadata++
	}

	stats.Entries = len(entries)

	return entries, stats
}

// ExtractAttributes parses a single #EXTINF line. It never fails: missing or
// malformed attributes are left empty and a missing title becomes UnnamedName.
func ExtractAttributes(line string) Attributes {
	return Attributes{
		Name:    extractName(line),
		TVGID:   extractAttribute(line, tvgIDPattern),
		TVGName: extractAttribute(line, tvgNamePattern),
		Logo:    extractAttribute(line, tvgLogoPattern),
		Group:   extractAttribute(line, groupTitlePattern),
	}
}

// Encode renders entries as an extended M3U playlist.
func Encode(entries []Entry) string {
	var sb strings.Builder

	sb.WriteString(HeaderTag + "\n")

	for _, entry := range entries {
		sb.WriteString(MetadataTag + "-1")
		writeAttribute(&sb, "tvg-id", entry.TVGID)
		writeAttribute(&sb, "tvg-name", entry.TVGName)
		writeAttribute(&sb, "tvg-logo", entry.Logo)
		writeAttribute(&sb, "group-title", entry.Group)
		sb.WriteString("," + entry.Name + "\n")
		sb.WriteString(entry.URL + "\n")
	}

	return sb.String()
}

func isMetadata(line string) bool {
	return strings.HasPrefix(line, MetadataTag)
}

// extractName returns the text after the last comma that is not inside a
// quoted attribute value. Unbalanced quotes fall back to the last comma.
func extractName(line string) string {
	comma := -1
	quoted := false

	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				comma = i
			}
		}
	}

	if comma < 0 {
		comma = strings.LastIndex(line, ",")
	}

	if comma < 0 {
		return UnnamedName
	}

	name := strings.TrimSpace(line[comma+1:])
	if name == "" {
		return UnnamedName
	}

	return name
}

func attributePattern(attr string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)(?:^|[\s:,])%s\s*=\s*"([^"]*)"`, regexp.QuoteMeta(attr)))
}

func extractAttribute(line string, re *regexp.Regexp) string {
	matches := re.FindStringSubmatch(line)
	if len(matches) < 2 || danglingKeyPattern.MatchString(matches[1]) {
		return ""
	}

	return strings.TrimSpace(matches[1])
}

func writeAttribute(sb *strings.Builder, key, value string) {
	if value == "" {
		return
	}

	sb.WriteString(fmt.Sprintf(` %s="%s"`, key, strings.ReplaceAll(value, `"`, "'")))
}
