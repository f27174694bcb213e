package report

import (
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/ja7ad/gpuwatt/pkg/attribution"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Windows is the JSON document of reconciled records.
type Windows struct {
	Target  string               `json:"target"`
	Policy  attribution.Policy   `json:"policy"`
	Stats   attribution.Stats    `json:"stats"`
	Records []attribution.Record `json:"records"`
}

// WriteWindowsJSON writes doc as indented JSON.
func WriteWindowsJSON(w io.Writer, doc Windows) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadWindowsJSON decodes a document written by WriteWindowsJSON.
func ReadWindowsJSON(r io.Reader) (Windows, error) {
	var doc Windows
	err := json.NewDecoder(r).Decode(&doc)
	return doc, err
}
