package cot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/takutils/inrcot/pkg/config"
	"github.com/takutils/inrcot/pkg/feed"
	"github.com/takutils/inrcot/pkg/geo"
)

const (
	uidPrefix = "Garmin-inReach"
	howGPS    = "m-g" // manually-reported GPS fix

	// unknown/unbounded error estimate per protocol convention
	unknownError = "9999999.0"

	whenFormat = "2006-01-02T15:04:05Z"
	// stale keeps the T separator, drops the zone suffix and renders sub-second
	// digits only when non-zero
	staleFormat = "2006-01-02T15:04:05.999999"
)

// FromEntry converts one validated location entry into a CoT event. A malformed
// entry yields an error and no event; the caller skips it and moves on, the
// feed source is expected to occasionally emit incomplete data.
func FromEntry(entry feed.LocationEntry, fc config.FeedConfig) (*Event, error) {
	coords := strings.TrimSpace(entry.Coordinates)
	if strings.Count(coords, ",") != 2 {
		return nil, fmt.Errorf("coordinates %q: want lon,lat,alt", coords)
	}

	parts := strings.SplitN(coords, ",", 3)
	lonText, latText, altText := parts[0], parts[1], parts[2]
	if latText == "" || lonText == "" {
		return nil, fmt.Errorf("coordinates %q: empty latitude or longitude", coords)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude: %w", err)
	}
	alt, err := strconv.ParseFloat(strings.TrimSpace(altText), 64)
	if err != nil {
		return nil, fmt.Errorf("parse altitude: %w", err)
	}

	// transform takes latitude first, matching the axis order of the MSL and
	// WGS84 reference systems
	haeLat, haeLon, hae := geo.MSLToHAE(lat, lon, alt)

	stale, err := staleTime(entry.When, fc.Stale)
	if err != nil {
		return nil, fmt.Errorf("compute stale: %w", err)
	}

	name := fc.CotName
	if name == "" {
		name = entry.Name
	}
	remarks := fmt.Sprintf("Garmin inReach User.\r\n Name: %s", name)

	evt := &Event{
		Version: "2.0",
		Type:    fc.Type,
		UID:     stripSpace(uidPrefix + "." + name),
		How:     howGPS,
		Time:    entry.When,
		Start:   entry.When,
		Stale:   stale,
		Point: Point{
			Lat: formatFloat(haeLat),
			Lon: formatFloat(haeLon),
			HAE: formatFloat(hae),
			CE:  unknownError,
			LE:  unknownError,
		},
		Detail: Detail{
			Remarks:  remarks,
			Contact:  Contact{Callsign: fmt.Sprintf("%s (inReach)", name)},
			RemarksE: Remarks{Text: remarks},
		},
	}
	if fc.Icon != "" {
		evt.Detail.UserIcon = &UserIcon{IconsetPath: fc.Icon}
	}
	return evt, nil
}

// staleTime computes the protocol expiry deadline from the entry's own report
// time, never from the wall clock, so the value is reproducible regardless of
// polling jitter.
func staleTime(when string, staleSeconds int) (string, error) {
	reported, err := time.Parse(whenFormat, when)
	if err != nil {
		return "", fmt.Errorf("parse report time %q: %w", when, err)
	}
	return reported.Add(time.Duration(staleSeconds) * time.Second).Format(staleFormat), nil
}

// stripSpace removes all whitespace, the uid must never contain any.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
