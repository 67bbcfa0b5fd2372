package domain

import "time"

// Image is a captured photo as raw encoded bytes.
type Image struct {
	Data     []byte
	MimeType string
}

// RecognizedText is what a text recognition engine reports for one image.
// Confidence is on the engine scale 0..100.
type RecognizedText struct {
	Text       string
	Confidence float64
}

// RecognitionResult is the outcome of one capture attempt. Plate is empty
// when no plate could be extracted. Confidence is 0..1 and always comes from
// the recognition engine, never from extraction.
type RecognitionResult struct {
	Plate      Plate   `json:"plate,omitempty"`
	Confidence float64 `json:"confidence"`
}

func (r RecognitionResult) Found() bool {
	return r.Plate != ""
}

// CacheEntry is the stored form of a cached vehicle record. Timestamps are
// unix milliseconds.
type CacheEntry struct {
	Data      VehicleRecord `json:"data"`
	StoredAt  int64         `json:"timestamp"`
	ExpiresAt int64         `json:"expiry"`
}

func (e CacheEntry) ExpiredAt(now time.Time) bool {
	return now.UnixMilli() > e.ExpiresAt
}

type HistoryEntry struct {
	Plate     Plate         `json:"plate"`
	Data      VehicleRecord `json:"data"`
	Timestamp int64         `json:"timestamp"`
}

func (e HistoryEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

type LookupSource string

const (
	SourceCache  LookupSource = "cache"
	SourceRemote LookupSource = "remote"
)

type LookupOutcome struct {
	Plate      Plate         `json:"plate"`
	Vehicle    VehicleRecord `json:"vehicle"`
	Source     LookupSource  `json:"source"`
	Confidence *float64      `json:"confidence,omitempty"`
}

type LookupState string

const (
	StateIdle           LookupState = "idle"
	StatePreprocessing  LookupState = "preprocessing"
	StateRecognizing    LookupState = "recognizing"
	StateExtracting     LookupState = "extracting"
	StateCanonicalizing LookupState = "canonicalizing"
	StateCacheCheck     LookupState = "cache_check"
	StateFetching       LookupState = "fetching"
	StateCacheWrite     LookupState = "cache_write"
	StateHistoryAppend  LookupState = "history_append"
	StateDone           LookupState = "done"
	StateError          LookupState = "error"
)

// Terminal reports whether s ends an invocation.
func (s LookupState) Terminal() bool {
	return s == StateDone || s == StateError
}
