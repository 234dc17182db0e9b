package entity

// Stats summarises mail delivery since the counters were last reset.
type Stats struct {
	Delivered  int64 `json:"delivered"`
	Failed     int64 `json:"failed"`
	Recipients int64 `json:"recipients"`
	Pending    int   `json:"pending"`
}
