// Package vocab holds the controlled vocabularies and the data-period table.
package vocab

import (
	"sort"
	"strings"

	"github.com/verte-zerg/samplecat/internal/model"
)

var classes = map[string]model.ClassType{
	"BACKGROUND": model.ClassBackground,
	"SIGNAL":     model.ClassSignal,
}

var types = map[string]model.DataType{
	"DATA": model.DataTypeData,
	"MC":   model.DataTypeMC,
}

var periods = map[string]model.RunRange{
	"AB": {Lo: 152166, Hi: 155161},
	"C":  {Lo: 155228, Hi: 156683},
	"D":  {Lo: 158045, Hi: 159225},
	"E":  {Lo: 160387, Hi: 161949},
	"F":  {Lo: 162347, Hi: 162883},
	"G":  {Lo: 165591, Hi: 166384},
	"H":  {Lo: 166466, Hi: 166965},
}

// ParseClassType maps an uppercased class label to its code.
func ParseClassType(label string) (model.ClassType, bool) {
	c, ok := classes[label]
	return c, ok
}

// ParseDataType maps an uppercased datatype label to its code.
func ParseDataType(label string) (model.DataType, bool) {
	t, ok := types[label]
	return t, ok
}

// ClassLabels returns the known class labels in code order.
func ClassLabels() []string {
	return labelsByCode(classes)
}

// DataTypeLabels returns the known datatype labels in code order.
func DataTypeLabels() []string {
	return labelsByCode(types)
}

// LookupPeriod returns the run range for a period label.
func LookupPeriod(label string) (model.RunRange, bool) {
	r, ok := periods[label]
	return r, ok
}

// Periods returns the period table ordered by first run.
func Periods() []model.Period {
	out := make([]model.Period, 0, len(periods))
	for label, runs := range periods {
		out = append(out, model.Period{Label: label, Runs: runs})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Runs.Lo < out[j].Runs.Lo
	})
	return out
}

// PeriodLabels returns the period labels ordered by first run.
func PeriodLabels() []string {
	ps := Periods()
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Label
	}
	return out
}

// PeriodForRun returns the period containing run, if any.
func PeriodForRun(run int) (string, bool) {
	for label, r := range periods {
		if r.Contains(run) {
			return label, true
		}
	}
	return "", false
}

// DescribeKnown renders a hint listing valid values for an operator.
func DescribeKnown(kind string, labels []string) string {
	if len(labels) == 0 {
		return "no " + kind + " have been defined"
	}
	return "use one of: " + strings.Join(labels, ", ")
}

func labelsByCode[V ~int](table map[string]V) []string {
	out := make([]string, 0, len(table))
	for label := range table {
		out = append(out, label)
	}
	sort.Slice(out, func(i, j int) bool {
		return table[out[i]] < table[out[j]]
	})
	return out
}
