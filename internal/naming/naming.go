// Package naming parses dataset directory names.
package naming

import (
	"regexp"
	"strconv"
)

// The dots are deliberately unescaped: both grammars accept any single
// character where the conventional name has a '.'.
var (
	dataPattern = regexp.MustCompile(`^group(?P<year>[0-9]+).(?P<group>[^.]+).(?P<run>[0-9]+).(?P<stream>[^.]+).(?P<tag>[^.]+).(?P<version>[0-9\-]+).D3PD(?:.(?P<edition>[0-9]+))?_StreamD3PD_?Tau(?P<size>SMALL|MEDIUM)$`)
	// The name group is empty and never constrains a match.
	mcPattern = regexp.MustCompile(`^group(?P<year>[0-9]+).perf-tau.mc(?P<prodyear>[0-9]+)_(?P<energy>[0-9]+)TeV.(?P<run>[0-9]+).(?P<name>).(?P<tag>[^.]+).(?P<suffix>.+)$`)
)

// DataDataset holds the fields of a recorded-data directory name.
type DataDataset struct {
	Year    string
	Group   string
	Run     int
	Stream  string
	Tag     string
	Version string
	Edition int
	Size    string
}

// MCDataset holds the fields of a simulated-data directory name.
type MCDataset struct {
	Year     string
	ProdYear string
	Energy   string
	Run      int
	Name     string
	Tag      string
	Suffix   string
}

// ParseData parses a recorded-data directory basename.
func ParseData(name string) (DataDataset, bool) {
	groups, ok := match(dataPattern, name)
	if !ok {
		return DataDataset{}, false
	}
	run, err := strconv.Atoi(groups["run"])
	if err != nil {
		return DataDataset{}, false
	}
	edition := 0
	if s := groups["edition"]; s != "" {
		edition, err = strconv.Atoi(s)
		if err != nil {
			return DataDataset{}, false
		}
	}
	return DataDataset{
		Year:    groups["year"],
		Group:   groups["group"],
		Run:     run,
		Stream:  groups["stream"],
		Tag:     groups["tag"],
		Version: groups["version"],
		Edition: edition,
		Size:    groups["size"],
	}, true
}

// ParseMC parses a simulated-data directory basename.
func ParseMC(name string) (MCDataset, bool) {
	groups, ok := match(mcPattern, name)
	if !ok {
		return MCDataset{}, false
	}
	run, err := strconv.Atoi(groups["run"])
	if err != nil {
		return MCDataset{}, false
	}
	return MCDataset{
		Year:     groups["year"],
		ProdYear: groups["prodyear"],
		Energy:   groups["energy"],
		Run:      run,
		Name:     groups["name"],
		Tag:      groups["tag"],
		Suffix:   groups["suffix"],
	}, true
}

func match(re *regexp.Regexp, s string) (map[string]string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	groups := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}
	return groups, true
}
