package redisx

import "time"

const (
	// Tracking view cache: track:order:{order_id} -> JSON TrackingView
	KeyOrderTrack = "track:order:%d"

	// Dedup event processing: dedup:{scope}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLTrackCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
