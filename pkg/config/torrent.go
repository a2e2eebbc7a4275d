package config

// Torrent is a point-in-time snapshot of a torrent as reported by a client.
type Torrent struct {
	Hash            string   `json:"Hash"`
	Name            string   `json:"Name"`
	TotalBytes      int64    `json:"TotalBytes"`
	DownloadedBytes int64    `json:"DownloadedBytes"`
	State           string   `json:"State"`
	Files           []File   `json:"Files"`
	Tags            []string `json:"Tags"`
	Label           string   `json:"Label"`
	AddedSeconds    int64    `json:"AddedSeconds"`
	// ETA in seconds, negative when the client cannot estimate one.
	ETA int64 `json:"ETA"`
}

// File is one file of a torrent.
type File struct {
	Index      int    `json:"Index"`
	Name       string `json:"Name"`
	Size       int64  `json:"Size"`
	Downloaded int64  `json:"Downloaded"`
	Skipped    bool   `json:"Skipped"`
	Deleted    bool   `json:"Deleted"`
}

// Downloaded reports whether every byte of the torrent is present.
func (t *Torrent) Downloaded() bool {
	return t.TotalBytes > 0 && t.DownloadedBytes >= t.TotalBytes
}
