package domain

import (
	"time"
)

// DownloadRequest is built from CLI input and consumed by a single fetch.
type DownloadRequest struct {
	ID              string `json:"id"`
	SourceLink      string `json:"source_link"`
	DestinationPath string `json:"destination_path"`
	Threads         int    `json:"threads,omitempty"`
}

// Resource is a share link resolved to its direct download URL.
type Resource struct {
	Href     string `json:"href"`
	FileName string `json:"file_name"`
}

// RangeInfo describes what a HEAD probe revealed about the download URL.
type RangeInfo struct {
	Size         int64
	AcceptRanges bool
}

// FetchResult describes a completed fetch.
type FetchResult struct {
	ID           string        `json:"id"`
	SourceLink   string        `json:"source_link"`
	Path         string        `json:"path"`
	Size         int64         `json:"size"`
	Checksum     string        `json:"checksum"`
	Ranged       bool          `json:"ranged"`
	Duration     time.Duration `json:"duration"`
	DownloadedAt time.Time     `json:"downloaded_at"`
}
