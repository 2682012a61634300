package storage

import (
	"time"

	"github.com/keshon/searchpanel/internal/search"
)

// EquallyPlayback reports the per-guild equal playback flag.
func (s *Storage) EquallyPlayback(guildID string) (bool, error) {
	r, err := s.guildRecord(guildID)
	if err != nil {
		return false, err
	}
	return r.EquallyPlayback, nil
}

// ToggleEquallyPlayback flips the flag and returns the new value.
func (s *Storage) ToggleEquallyPlayback(guildID string) (bool, error) {
	var enabled bool
	err := s.updateGuildRecord(guildID, func(r *Record) error {
		r.EquallyPlayback = !r.EquallyPlayback
		enabled = r.EquallyPlayback
		return nil
	})
	return enabled, err
}

// RecordSelection stores what a user picked from a search panel.
func (s *Storage) RecordSelection(guildID, userID, query string, picked []search.Result) error {
	rec := SearchHistoryRecord{
		UserID:   userID,
		Query:    query,
		URLs:     make([]string, 0, len(picked)),
		Titles:   make([]string, 0, len(picked)),
		Datetime: time.Now(),
	}
	for _, p := range picked {
		rec.URLs = append(rec.URLs, p.URL)
		rec.Titles = append(rec.Titles, p.Label())
	}

	return s.updateGuildRecord(guildID, func(r *Record) error {
		r.SearchHistory = keepLast(append(r.SearchHistory, rec), searchHistoryLimit)
		return nil
	})
}

func (s *Storage) FetchSearchHistory(guildID string) ([]SearchHistoryRecord, error) {
	r, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return r.SearchHistory, nil
}
