package upload

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	exif.RegisterParsers(mknote.All...)
}

// Exif holds the photo metadata that is copied onto a report.
type Exif struct {
	Latitude   *float64
	Longitude  *float64
	CapturedAt *time.Time
}

// ReadExif is best-effort: photos without EXIF, or with a broken block, yield an empty Exif.
func ReadExif(data []byte) Exif {
	var out Exif
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("no exif data", "error", err)
		return out
	}

	if lat, long, err := x.LatLong(); err == nil && validCoordinate(lat, long) {
		out.Latitude = &lat
		out.Longitude = &long
	}
	if ts, err := x.DateTime(); err == nil && !ts.IsZero() {
		utc := ts.UTC()
		out.CapturedAt = &utc
	}
	return out
}

func validCoordinate(lat, long float64) bool {
	if lat == 0 && long == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && long >= -180 && long <= 180
}
