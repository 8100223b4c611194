package model

import "time"

// ScanRecord is one scan of an adaptive link: which slot was served, which
// kind of rule selected it, and the request context used for history and
// geo-tagging.
type ScanRecord struct {
	Code        string    `json:"code"`
	SlotID      string    `json:"slotID"`
	MatchedRule string    `json:"matchedRule"`
	ScannedAt   time.Time `json:"scannedAt"`
	IP          string    `json:"ip"`
	UserAgent   string    `json:"userAgent,omitempty"`
	Referer     string    `json:"referer,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"` // opaque visitor hash, not raw identity
	Country     string    `json:"country,omitempty"`     // ISO 3166-1 alpha-2 from the edge header
}

// ScanStats aggregates a link's scan history for the owner dashboard.
type ScanStats struct {
	TotalScans     int64             `json:"totalScans"`
	UniqueVisitors int64             `json:"uniqueVisitors"`
	ScansBySlot    map[string]int64  `json:"scansBySlot"`
	ScansByRule    map[string]int64  `json:"scansByRule"`
	ScansByCountry map[string]int64  `json:"scansByCountry"`
	ScansByDay     []TimeSeriesPoint `json:"scansByDay"`
	LastScannedAt  string            `json:"lastScannedAt,omitempty"` // ISO 8601
	ScanLimit      int               `json:"scanLimit,omitempty"`
	ScansUsed      int64             `json:"scansUsed"`
}

// TimeSeriesPoint is one day of scan counts.
type TimeSeriesPoint struct {
	Date  string `json:"date"` // "YYYY-MM-DD"
	Value int64  `json:"value"`
}

// ScanHistoryResponse is the paginated scan history payload.
type ScanHistoryResponse struct {
	Code  string       `json:"code"`
	Stats ScanStats    `json:"stats"`
	Scans []ScanRecord `json:"scans"`
}
