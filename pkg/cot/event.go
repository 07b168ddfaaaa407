// Package cot builds and serializes Cursor-on-Target events from MapShare
// location entries.
package cot

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// Event is one CoT event document. Position and time attributes are kept as
// strings so the serialized form is plain decimal / ISO-8601 text rather than
// Go's scientific float notation.
type Event struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	Type    string   `xml:"type,attr"`
	UID     string   `xml:"uid,attr"`
	How     string   `xml:"how,attr"`
	Time    string   `xml:"time,attr"`
	Start   string   `xml:"start,attr"`
	Stale   string   `xml:"stale,attr"`
	Point   Point    `xml:"point"`
	Detail  Detail   `xml:"detail"`
}

// Point carries the transformed WGS84 position. CE and LE are the circular and
// linear error bounds, 9999999.0 meaning unknown per protocol convention.
type Point struct {
	Lat string `xml:"lat,attr"`
	Lon string `xml:"lon,attr"`
	HAE string `xml:"hae,attr"`
	CE  string `xml:"ce,attr"`
	LE  string `xml:"le,attr"`
}

// Detail duplicates the remarks text as an attribute and as a nested element,
// clients disagree on which one they read.
type Detail struct {
	Remarks  string    `xml:"remarks,attr"`
	Contact  Contact   `xml:"contact"`
	RemarksE Remarks   `xml:"remarks"`
	UserIcon *UserIcon `xml:"usericon,omitempty"`
}

// Contact holds the display callsign.
type Contact struct {
	Callsign string `xml:"callsign,attr"`
}

// Remarks is the nested remarks element body.
type Remarks struct {
	Text string `xml:",chardata"`
}

// UserIcon references a TAK iconset path.
type UserIcon struct {
	IconsetPath string `xml:"iconsetpath,attr"`
}

// Marshal renders the event to protocol markup bytes, one event per call.
func (e *Event) Marshal() ([]byte, error) {
	data, err := xml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal parses serialized event bytes back into an Event.
func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := xml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}

// formatFloat renders a coordinate value as plain decimal text.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
