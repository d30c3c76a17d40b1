package geolocation

import (
	"context"
	"time"
)

// Report is a reading delivered by a browser geolocation callback: either a
// fix or a platform error code.
type Report struct {
	Lat       float64   `json:"lat" form:"lat"`
	Lng       float64   `json:"lng" form:"lng"`
	Accuracy  float64   `json:"accuracy" form:"accuracy"`
	Code      ErrorCode `json:"code" form:"code"`
	Message   string    `json:"message" form:"message"`
	Supported *bool     `json:"supported" form:"supported"`
}

// Locator returns nil when the reporting browser had no geolocation API.
func (r Report) Locator() Locator {
	if r.Supported != nil && !*r.Supported {
		return nil
	}
	return reportLocator(r)
}

type reportLocator Report

func (r reportLocator) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if r.Code != 0 {
		return Position{}, &PositionError{Code: r.Code, Message: r.Message}
	}
	return Position{Lat: r.Lat, Lng: r.Lng, Accuracy: r.Accuracy}, nil
}

// Fixed always answers with the same coordinates.
type Fixed struct {
	Lat float64
	Lng float64
}

func (f Fixed) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	return Position{Lat: f.Lat, Lng: f.Lng, Timestamp: time.Now()}, nil
}
