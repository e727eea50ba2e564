package data

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/savid/iptv-catalog/internal/catalog"
	"github.com/savid/iptv-catalog/internal/metrics"
	"github.com/sirupsen/logrus"
)

// ErrEmptyPlaylist is returned when the upstream answers with a blank body.
var ErrEmptyPlaylist = errors.New("server returned an empty playlist")

// ErrStreamFallback accompanies the single direct stream record Load returns
// when a media URL could not be fetched as a playlist.
var ErrStreamFallback = errors.New("playlist unavailable, using url as a direct stream")

// mediaExtensions mark URLs that point at a stream rather than a playlist.
var mediaExtensions = map[string]bool{
	".m3u8": true,
	".ts":   true,
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
}

// TextFetcher retrieves playlist text for a URL.
type TextFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Invalidator drops any cached response for a URL.
type Invalidator interface {
	Invalidate(url string)
}

// Loader fetches a playlist and turns it into catalog records.
type Loader struct {
	log     logrus.FieldLogger
	fetcher TextFetcher
}

// NewLoader creates a new playlist loader.
func NewLoader(log logrus.FieldLogger, fetcher TextFetcher) *Loader {
	return &Loader{
		log:     log.WithField("component", "loader"),
		fetcher: fetcher,
	}
}

// Load fetches playlistURL and parses it. When the fetch fails and the URL
// looks like a media stream, a single fallback live record is returned along
// with an error wrapping ErrStreamFallback. Otherwise the error comes back
// with an empty slice.
func (l *Loader) Load(ctx context.Context, playlistURL string) ([]catalog.Record, error) {
	log := l.log.WithField("url", playlistURL)
	log.Info("Loading playlist")

	text, err := l.fetcher.Fetch(ctx, playlistURL)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyPlaylist
	}

	if err != nil {
		if IsMediaURL(playlistURL) {
			log.WithError(err).Warn("Playlist fetch failed, using URL as a direct stream")
			metrics.PlaylistLoads.WithLabelValues(metrics.ResultFallback).Inc()

			return []catalog.Record{catalog.StreamFallback(playlistURL)}, fmt.Errorf("%w: %w", ErrStreamFallback, err)
		}

		metrics.PlaylistLoads.WithLabelValues(metrics.ResultFailed).Inc()

		return []catalog.Record{}, fmt.Errorf("failed to fetch playlist: %w", err)
	}

	records, stats := catalog.ParseWithStats(text, playlistURL)

	metrics.DroppedLines.WithLabelValues("metadata").Add(float64(stats.OrphanedMetadata))
	metrics.DroppedLines.WithLabelValues("url").Add(float64(stats.OrphanedURLs))

	if len(records) == 0 {
		metrics.PlaylistLoads.WithLabelValues(metrics.ResultEmpty).Inc()
	} else {
		metrics.PlaylistLoads.WithLabelValues(metrics.ResultParsed).Inc()
	}

	log.WithFields(logrus.Fields{
		"records":           len(records),
		"orphaned_metadata": stats.OrphanedMetadata,
		"orphaned_urls":     stats.OrphanedURLs,
	}).Info("Playlist loaded")

	logTypeSummary(log, records)

	return records, nil
}

// Invalidate drops the fetcher's cached response for playlistURL, if the
// fetcher caches at all.
func (l *Loader) Invalidate(playlistURL string) {
	if inv, ok := l.fetcher.(Invalidator); ok {
		inv.Invalidate(playlistURL)
	}
}

// IsMediaURL reports whether the path of rawURL ends in a known media
// extension.
func IsMediaURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return mediaExtensions[strings.ToLower(path.Ext(u.Path))]
}

// logTypeSummary logs how many records of each type were loaded.
func logTypeSummary(log logrus.FieldLogger, records []catalog.Record) {
	split := catalog.SplitByType(records)

	log.WithFields(logrus.Fields{
		"live":   len(split.Live),
		"movies": len(split.Movies),
		"series": len(split.Series),
	}).Info("Content type summary")
}
