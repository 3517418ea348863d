package models

import "time"

// StatsRecord is one hype-tracking document exactly as the store holds it,
// including the store's identifier under "_id".
type StatsRecord map[string]any

// Timestamp returns the record's "timestamp" field, if it holds a time.
func (r StatsRecord) Timestamp() (time.Time, bool) {
	switch v := r["timestamp"].(type) {
	case time.Time:
		return v, true
	case interface{ Time() time.Time }:
		return v.Time(), true
	}
	return time.Time{}, false
}
