package m3u

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func parseText(text string) []Entry {
	return Parse(Lines(text))
}

func TestParse_ValidPlaylist(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-id="espn.us" tvg-name="ESPN" tvg-logo="http://logo.example.com/espn.png" group-title="US Sports",ESPN
http://stream.example.com/12345

#EXTINF:-1 tvg-id="hbo.us" tvg-name="HBO" tvg-logo="http://logo.example.com/hbo.png" group-title="US Movies",HBO
http://stream.example.com/12346
`
	entries := parseText(input)
	require.Len(t, entries, 2)

	require.Equal(t, "ESPN", entries[0].Name)
	require.Equal(t, "http://stream.example.com/12345", entries[0].URL)
	require.Equal(t, "espn.us", entries[0].TVGID)
	require.Equal(t, "ESPN", entries[0].TVGName)
	require.Equal(t, "http://logo.example.com/espn.png", entries[0].Logo)
	require.Equal(t, "US Sports", entries[0].Group)

	require.Equal(t, "HBO", entries[1].Name)
	require.Equal(t, "http://stream.example.com/12346", entries[1].URL)
	require.Equal(t, "US Movies", entries[1].Group)
}

func TestLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty",
			input:    "",
			expected: []string{},
		},
		{
			name:     "unix endings",
			input:    "a\nb\n",
			expected: []string{"a", "b"},
		},
		{
			name:     "windows endings",
			input:    "a\r\nb\r\n",
			expected: []string{"a", "b"},
		},
		{
			name:     "old mac endings",
			input:    "a\rb",
			expected: []string{"a", "b"},
		},
		{
			name:     "whitespace and blank lines",
			input:    "  a  \n\n\t\n b\t",
			expected: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Lines(tt.input))
		})
	}
}

func TestHasMetadata(t *testing.T) {
	require.False(t, HasMetadata(nil))
	require.False(t, HasMetadata([]string{"#EXTM3U", "http://example.com/stream.m3u8"}))
	require.True(t, HasMetadata([]string{"#EXTM3U", "#EXTINF:-1,Name", "http://example.com/1"}))
}

func TestExtractAttributes(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Attributes
	}{
		{
			name: "all attributes",
			line: `#EXTINF:-1 tvg-id="fox.sports.1" tvg-name="FOX Sports 1" tvg-logo="http://logo.example.com/fox.png" group-title="Australia",FOX Sports 1`,
			expected: Attributes{
				Name:    "FOX Sports 1",
				TVGID:   "fox.sports.1",
				TVGName: "FOX Sports 1",
				Logo:    "http://logo.example.com/fox.png",
				Group:   "Australia",
			},
		},
		{
			name: "reordered attributes",
			line: `#EXTINF:-1 group-title="News" tvg-logo="http://logo.example.com/cnn.png" tvg-id="cnn",CNN`,
			expected: Attributes{
				Name:  "CNN",
				TVGID: "cnn",
				Logo:  "http://logo.example.com/cnn.png",
				Group: "News",
			},
		},
		{
			name: "whitespace around equals and mixed case keys",
			line: `#EXTINF:-1 TVG-LOGO = "http://logo.example.com/bbc.png"  Group-Title= "UK" ,BBC One`,
			expected: Attributes{
				Name:  "BBC One",
				Logo:  "http://logo.example.com/bbc.png",
				Group: "UK",
			},
		},
		{
			name: "unbalanced quote still yields a title",
			line: `#EXTINF:-1 tvg-logo="http://logo.example.com/broken.png group-title="Kids",Cartoons`,
			expected: Attributes{
				Name:  "Cartoons",
				Group: "Kids",
			},
		},
		{
			name: "unbalanced quote before a spaced key",
			line: `#EXTINF:-1 tvg-name="Sky Sports tvg-logo = "http://logo.example.com/sky.png",Sky Sports`,
			expected: Attributes{
				Name: "Sky Sports",
				Logo: "http://logo.example.com/sky.png",
			},
		},
		{
			name: "equals inside a quoted value is kept",
			line: `#EXTINF:-1 tvg-logo="http://logo.example.com/img.php?id=42" group-title="News",Local`,
			expected: Attributes{
				Name:  "Local",
				Logo:  "http://logo.example.com/img.php?id=42",
				Group: "News",
			},
		},
		{
			name: "unquoted value is absent",
			line: `#EXTINF:-1 tvg-id=abc group-title="Docs",Planet`,
			expected: Attributes{
				Name:  "Planet",
				Group: "Docs",
			},
		},
		{
			name: "empty values are absent",
			line: `#EXTINF:-1 tvg-logo="" group-title="",Local`,
			expected: Attributes{
				Name: "Local",
			},
		},
		{
			name: "no attributes",
			line: `#EXTINF:-1,Local Channel`,
			expected: Attributes{
				Name: "Local Channel",
			},
		},
		{
			name: "no comma",
			line: `#EXTINF:-1 tvg-id="x"`,
			expected: Attributes{
				Name:  UnnamedName,
				TVGID: "x",
			},
		},
		{
			name: "empty title",
			line: `#EXTINF:-1 tvg-id="x",   `,
			expected: Attributes{
				Name:  UnnamedName,
				TVGID: "x",
			},
		},
		{
			name: "comma inside quoted group",
			line: `#EXTINF:-1 group-title="Movies, Action",Die Hard`,
			expected: Attributes{
				Name:  "Die Hard",
				Group: "Movies, Action",
			},
		},
		{
			name: "title after last comma",
			line: `#EXTINF:-1 tvg-name="Short Name",Prefix,Full Name`,
			expected: Attributes{
				Name:    "Full Name",
				TVGName: "Short Name",
			},
		},
		{
			name: "attribute name must not be a suffix of another",
			line: `#EXTINF:-1 xtvg-id="wrong" tvg-id="right",Name`,
			expected: Attributes{
				Name:  "Name",
				TVGID: "right",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ExtractAttributes(tt.line))
		})
	}
}

func TestParse_SpecialCharacters(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name: "unicode characters",
			input: `#EXTINF:-1 tvg-name="Tele Zurich",Télé Zürich
http://stream.example.com/1`,
			expected: "Télé Zürich",
		},
		{
			name: "ampersand in name",
			input: `#EXTINF:-1 tvg-name="A&E",A&E Network
http://stream.example.com/1`,
			expected: "A&E Network",
		},
		{
			name: "parentheses in name",
			input: `#EXTINF:-1 tvg-name="ESPN (HD)",ESPN (HD)
http://stream.example.com/1`,
			expected: "ESPN (HD)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := parseText(tt.input)
			require.Len(t, entries, 1)
			require.Equal(t, tt.expected, entries[0].Name)
		})
	}
}

func TestParseWithStats_Orphans(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		names    []string
		urls     []string
		expected ParseStats
	}{
		{
			name: "dangling metadata at end",
			input: `#EXTM3U
#EXTINF:-1,Channel 1
http://stream.example.com/1
#EXTINF:-1,Channel 2`,
			names:    []string{"Channel 1"},
			urls:     []string{"http://stream.example.com/1"},
			expected: ParseStats{Entries: 1, OrphanedMetadata: 1},
		},
		{
			name: "second metadata replaces first",
			input: `#EXTINF:-1,Channel 1
#EXTINF:-1,Channel 2
http://stream.example.com/2`,
			names:    []string{"Channel 2"},
			urls:     []string{"http://stream.example.com/2"},
			expected: ParseStats{Entries: 1, OrphanedMetadata: 1},
		},
		{
			name: "url without metadata",
			input: `#EXTM3U
http://stream.example.com/orphan
#EXTINF:-1,Channel 1
http://stream.example.com/1
http://stream.example.com/extra`,
			names:    []string{"Channel 1"},
			urls:     []string{"http://stream.example.com/1"},
			expected: ParseStats{Entries: 1, OrphanedURLs: 2},
		},
		{
			name: "comments between metadata and url",
			input: `#EXTINF:-1,Channel 1
#EXTVLCOPT:http-user-agent=VLC
#EXTGRP:News
rtmp://stream.example.com/1`,
			names:    []string{"Channel 1"},
			urls:     []string{"rtmp://stream.example.com/1"},
			expected: ParseStats{Entries: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, stats := ParseWithStats(Lines(tt.input))
			require.Equal(t, tt.expected, stats)
			require.Len(t, entries, len(tt.names))

			for i := range entries {
				require.Equal(t, tt.names[i], entries[i].Name)
				require.Equal(t, tt.urls[i], entries[i].URL)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	require.Empty(t, parseText(""))
	require.Empty(t, parseText("#EXTM3U\n"))
}

func TestParse_NoHeader(t *testing.T) {
	entries := parseText(`#EXTINF:-1 tvg-name="Channel1",Channel 1
http://stream.example.com/1`)
	require.Len(t, entries, 1)
	require.Equal(t, "Channel 1", entries[0].Name)
}

func TestEncode_EmptyEntries(t *testing.T) {
	require.Equal(t, "#EXTM3U\n", Encode(nil))
}

func TestEncode_OmitsEmptyAttributes(t *testing.T) {
	out := Encode([]Entry{{Attributes: Attributes{Name: "Local"}, URL: "http://stream.example.com/1"}})
	require.Equal(t, "#EXTM3U\n#EXTINF:-1,Local\nhttp://stream.example.com/1\n", out)
}

func TestEncode_RoundTrip(t *testing.T) {
	original := []Entry{
		{
			Attributes: Attributes{
				Name:    "Test Channel",
				TVGID:   "test.id",
				TVGName: "Test",
				Logo:    "http://logo.example.com/test.png",
				Group:   "Test Group",
			},
			URL: "http://stream.example.com/test",
		},
		{
			Attributes: Attributes{Name: "Second"},
			URL:        "http://stream.example.com/second",
		},
	}

	require.Equal(t, original, parseText(Encode(original)))
}
