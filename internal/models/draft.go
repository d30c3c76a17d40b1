package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Photo is an attached image held in memory until the report is sent.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (p *Photo) IsImage() bool {
	return p != nil && strings.HasPrefix(p.ContentType, "image/")
}

// ReportFormDraft is the in-progress stray report. Coordinates and time are
// kept as the strings the reporter typed.
type ReportFormDraft struct {
	Description     string `json:"description"`
	Lat             string `json:"lat"`
	Lng             string `json:"lng"`
	ReportTime      string `json:"report_time"`
	Photo           *Photo `json:"-"`
	PhotoPreviewURL string `json:"photo_preview_url,omitempty"`
}

func (d ReportFormDraft) Empty() bool {
	return d.Description == "" && d.Lat == "" && d.Lng == "" && d.ReportTime == "" &&
		d.Photo == nil && d.PhotoPreviewURL == ""
}

// TimeRange is the recency window for map queries, in days.
type TimeRange int

const (
	TimeRangeDay   TimeRange = 1
	TimeRange3Days TimeRange = 3
	TimeRangeWeek  TimeRange = 7
)

var TimeRanges = []TimeRange{TimeRangeDay, TimeRange3Days, TimeRangeWeek}

func (r TimeRange) Days() int { return int(r) }

func (r TimeRange) Valid() bool {
	switch r {
	case TimeRangeDay, TimeRange3Days, TimeRangeWeek:
		return true
	}
	return false
}

func (r TimeRange) Label() string {
	switch r {
	case TimeRangeDay:
		return "24h"
	case TimeRange3Days:
		return "3 Days"
	case TimeRangeWeek:
		return "7 Days"
	default:
		return ""
	}
}

func ParseTimeRange(s string) (TimeRange, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time range %q: %w", s, err)
	}
	r := TimeRange(n)
	if !r.Valid() {
		return 0, fmt.Errorf("invalid time range %d: must be 1, 3 or 7", n)
	}
	return r, nil
}
