package model

// RouterSession is a live hotspot session as reported by a router. It is
// never persisted; the ledger is the source of truth and sessions are
// reconciled against it.
type RouterSession struct {
	RouterEntryID string `json:"router_entry_id"`
	SessionToken  string `json:"session_token"`
	MAC           string `json:"mac"`
	IP            string `json:"ip"`
	Uptime        string `json:"uptime"`
	BytesIn       int64  `json:"bytes_in"`
	BytesOut      int64  `json:"bytes_out"`
}

// RouterStatus is live telemetry from a router's system resource endpoint.
type RouterStatus struct {
	Model          string  `json:"model"`
	Version        string  `json:"version"`
	Uptime         string  `json:"uptime"`
	CPULoad        float64 `json:"cpu_load"`
	MemoryUsage    float64 `json:"memory_usage"`
	ActiveSessions int     `json:"active_sessions"`
}
