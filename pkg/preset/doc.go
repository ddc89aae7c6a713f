// Package preset builds the single-instance multi-region back-end: an XML
// program document with one wave and one single-key region per sample and
// a shared envelope soundshape.
package preset

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Document is the sampler program file. Field names and units are a fixed
// contract with the target application; changing them breaks loading.
type Document struct {
	XMLName    xml.Name   `xml:"program"`
	Version    string     `xml:"version,attr"`
	Name       string     `xml:"name,attr"`
	Waves      []Wave     `xml:"waves>wave"`
	Soundshape Soundshape `xml:"soundshape"`
	Group      Group      `xml:"group"`
}

// Wave is one source sample reference. Loop bounds are absolute sample
// counts into the file; only forward looping is emitted.
type Wave struct {
	ID        int    `xml:"id,attr"`
	Path      string `xml:"path,attr"`
	LoopStart *int64 `xml:"loopstart,attr,omitempty"`
	LoopEnd   *int64 `xml:"loopend,attr,omitempty"`
	LoopMode  string `xml:"loopmode,attr,omitempty"`
}

// Soundshape is the single global envelope. Attack and release carry a
// "<value>ms" suffix, sustain a "<value> dB" suffix.
type Soundshape struct {
	ID      int    `xml:"id,attr"`
	Attack  string `xml:"attack,attr"`
	Release string `xml:"release,attr"`
	Sustain string `xml:"sustain,attr"`
}

// Group holds the regions and the global key/velocity bounds
type Group struct {
	LowKey  string   `xml:"lowkey,attr"`
	HighKey string   `xml:"highkey,attr"`
	LowVel  int      `xml:"lowvel,attr"`
	HighVel int      `xml:"highvel,attr"`
	Regions []Region `xml:"region"`
}

// Region maps one wave to exactly one key: root, low and high all carry
// the wave's note name.
type Region struct {
	Wave    int    `xml:"wave,attr"`
	Root    string `xml:"root,attr"`
	LowKey  string `xml:"lowkey,attr"`
	HighKey string `xml:"highkey,attr"`
}

// Marshal renders the document with the XML declaration
func (d *Document) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preset: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// WriteFile persists the document. The document is marshaled fully before
// the file is touched, so a marshal error leaves nothing behind.
func (d *Document) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}
	return nil
}

// MillisecondsAttr formats a duration attribute, e.g. "2ms", "0.5ms"
func MillisecondsAttr(ms float64) string {
	return strconv.FormatFloat(ms, 'f', -1, 64) + "ms"
}

// DecibelAttr formats a level attribute, e.g. "0 dB", "-12.5 dB"
func DecibelAttr(db float64) string {
	return strconv.FormatFloat(db, 'f', -1, 64) + " dB"
}

// EncodePath turns a file path into the URI form the target application
// expects: forward slashes, with spaces and '#' percent-encoded. Nothing
// else is escaped.
func EncodePath(path string) string {
	p := filepath.ToSlash(path)
	p = strings.ReplaceAll(p, " ", "%20")
	return strings.ReplaceAll(p, "#", "%23")
}
