package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	LostStatusPending = "pending"
	LostStatusFound   = "found"
)

// RecordID accepts both JSON strings and numbers, backends disagree.
type RecordID string

func (id *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("record id: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

func (id RecordID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// RawStrayReport is a stray sighting as served by GET /map/stray.
type RawStrayReport struct {
	ID          RecordID `json:"id"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Description string   `json:"description"`
	Address     string   `json:"address,omitempty"`
	ReportTime  string   `json:"report_time"`
	PhotoPath   string   `json:"photo_path"`
}

// RawLostAnnouncement is a lost-pet notice as served by GET /map/lost.
type RawLostAnnouncement struct {
	ID          RecordID `json:"id"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	Breed       string   `json:"breed"`
	Description string   `json:"description"`
	LostTime    string   `json:"lost_time"`
	Address     string   `json:"address,omitempty"`
	Contact     string   `json:"contact,omitempty"`
	PhotoPath   string   `json:"photo_path"`
	Status      string   `json:"status"`
}

func (a RawLostAnnouncement) Found() bool {
	return a.Status == LostStatusFound
}

// Float returns the coordinate or 0 when the backend left it out.
func Float(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func FloatPtr(f float64) *float64 {
	return &f
}

func FormatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
