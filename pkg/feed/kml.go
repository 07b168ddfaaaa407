package feed

import (
	"encoding/xml"
	"fmt"
)

// KML element names are namespace-qualified; the struct tags below are the single
// definition of the input schema, nothing else in the codebase spells out the
// qualified names.

// kml is the root of a MapShare document.
type kml struct {
	XMLName  xml.Name
	Document *document `xml:"http://www.opengis.net/kml/2.2 Document"`
}

// document holds one Folder per tracked device.
type document struct {
	Folders []Folder `xml:"http://www.opengis.net/kml/2.2 Folder"`
}

// Folder is one device's group; its Placemark carries the current position.
type Folder struct {
	Placemark *placemark `xml:"http://www.opengis.net/kml/2.2 Placemark"`
}

type placemark struct {
	Name      string     `xml:"http://www.opengis.net/kml/2.2 name"`
	TimeStamp *timeStamp `xml:"http://www.opengis.net/kml/2.2 TimeStamp"`
	Point     *point     `xml:"http://www.opengis.net/kml/2.2 Point"`
}

type timeStamp struct {
	When string `xml:"http://www.opengis.net/kml/2.2 when"`
}

type point struct {
	Coordinates string `xml:"http://www.opengis.net/kml/2.2 coordinates"`
}

// LocationEntry is one device's position as reported by the feed, fields still
// text pending validation. Lives for a single poll cycle.
type LocationEntry struct {
	Name        string
	Coordinates string // "lon,lat,altitude-meters"
	When        string // "2006-01-02T15:04:05Z"
}

// SplitFeed parses MapShare KML content and returns the Document's Folder groups.
// A document without a Document container yields an empty result, not an error.
func SplitFeed(content []byte) ([]Folder, error) {
	var root kml
	if err := xml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("parse kml: %w", err)
	}
	if root.Document == nil {
		return nil, nil
	}
	return root.Document.Folders, nil
}

// Entry extracts the location entry from a folder's placemark. Missing placemark,
// point or timestamp means the device has nothing to report this cycle.
func (f Folder) Entry() (LocationEntry, error) {
	if f.Placemark == nil {
		return LocationEntry{}, fmt.Errorf("folder has no placemark")
	}
	if f.Placemark.Point == nil {
		return LocationEntry{}, fmt.Errorf("placemark has no point")
	}
	if f.Placemark.TimeStamp == nil {
		return LocationEntry{}, fmt.Errorf("placemark has no timestamp")
	}
	return LocationEntry{
		Name:        f.Placemark.Name,
		Coordinates: f.Placemark.Point.Coordinates,
		When:        f.Placemark.TimeStamp.When,
	}, nil
}
