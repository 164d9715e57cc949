// Package meta reads per-sample metadata documents.
package meta

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// FileName is the metadata file expected directly beneath a sample root.
const FileName = "meta.xml"

// Metadata is the parsed content of a metadata document. Type and Class are
// uppercased but not yet checked against the vocabularies.
type Metadata struct {
	Type   string
	Class  string
	Weight float64
	Tree   string
}

type document struct {
	XMLName xml.Name `xml:"meta"`
	Type    []string `xml:"type"`
	Class   []string `xml:"class"`
	Weight  []string `xml:"weight"`
	Tree    []string `xml:"tree"`
}

// Load reads and parses the metadata document at path.
func Load(path string, constants map[string]float64) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	return Parse(data, constants)
}

// Parse decodes a metadata document and evaluates its weight expression.
func Parse(data []byte, constants map[string]float64) (Metadata, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	typ, err := single("type", doc.Type)
	if err != nil {
		return Metadata{}, err
	}
	class, err := single("class", doc.Class)
	if err != nil {
		return Metadata{}, err
	}
	weightExpr, err := single("weight", doc.Weight)
	if err != nil {
		return Metadata{}, err
	}
	tree, err := single("tree", doc.Tree)
	if err != nil {
		return Metadata{}, err
	}
	weight, err := EvalWeight(weightExpr, constants)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Type:   strings.ToUpper(typ),
		Class:  strings.ToUpper(class),
		Weight: weight,
		Tree:   tree,
	}, nil
}

func single(field string, values []string) (string, error) {
	if len(values) != 1 {
		return "", fmt.Errorf("expected exactly one <%s> element, found %d", field, len(values))
	}
	v := strings.TrimSpace(values[0])
	if v == "" {
		return "", fmt.Errorf("<%s> element is empty", field)
	}
	return v, nil
}
