// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// DataType tells recorded detector data apart from simulation.
type DataType int

// Datatype codes.
const (
	DataTypeData DataType = 0
	DataTypeMC   DataType = 1
)

// String returns the vocabulary label for the datatype.
func (t DataType) String() string {
	switch t {
	case DataTypeData:
		return "DATA"
	case DataTypeMC:
		return "MC"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ClassType is the analysis role of a sample.
type ClassType int

// Classtype codes.
const (
	ClassBackground ClassType = 0
	ClassSignal     ClassType = 1
)

// String returns the vocabulary label for the classtype.
func (c ClassType) String() string {
	switch c {
	case ClassBackground:
		return "BACKGROUND"
	case ClassSignal:
		return "SIGNAL"
	default:
		return fmt.Sprintf("ClassType(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c ClassType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Sample is a resolved, named collection of data files.
type Sample struct {
	Name      string    `json:"name" yaml:"name"`
	DataType  DataType  `json:"datatype" yaml:"datatype"`
	ClassType ClassType `json:"classtype" yaml:"classtype"`
	Tree      string    `json:"tree" yaml:"tree"`
	Weight    float64   `json:"weight" yaml:"weight"`
	Files     []string  `json:"files" yaml:"files"`
}

// RunRange is a half-open run-number interval [Lo, Hi).
type RunRange struct {
	Lo int
	Hi int
}

// Contains reports whether run lies inside the range.
func (r RunRange) Contains(run int) bool {
	return run >= r.Lo && run < r.Hi
}

// Period is a labelled run range.
type Period struct {
	Label string
	Runs  RunRange
}

// CatalogEntry is a resolved sample as persisted in the catalog.
type CatalogEntry struct {
	Sample     Sample
	Base       string
	Periods    []string
	ScanID     string
	ResolvedAt time.Time
}

// CatalogFilter narrows catalog listings.
type CatalogFilter struct {
	DataType  *DataType
	ClassType *ClassType
	Prefix    string
}

// ScanSummary reports the outcome of a catalog scan.
type ScanSummary struct {
	ScanID   string
	Resolved int
	Failed   int
	Failures map[string]error
}
