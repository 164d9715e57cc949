package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/verte-zerg/samplecat/internal/model"
	"github.com/verte-zerg/samplecat/internal/naming"
	"github.com/verte-zerg/samplecat/internal/vocab"
)

// dataFileMarker must appear somewhere in a data file name.
const dataFileMarker = "root"

type runChoice struct {
	edition int
	dir     string
}

func (r *Resolver) aggregate(name, base string, dataType model.DataType, periods []string) ([]string, string, error) {
	dirs, err := candidateDirs(base)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list sample directory: %w", err)
	}
	if dataType == model.DataTypeMC {
		files := []string{}
		for _, dir := range dirs {
			if _, ok := naming.ParseMC(filepath.Base(dir)); !ok {
				r.logger.Debug("directory does not follow simulated-data naming", "dir", filepath.Base(dir))
			}
			files = append(files, r.dataFiles(dir)...)
		}
		return files, name, nil
	}

	var ranges []model.RunRange
	if periods != nil {
		ranges = make([]model.RunRange, 0, len(periods))
		for _, label := range periods {
			rr, ok := vocab.LookupPeriod(label)
			if !ok {
				return nil, "", &Error{
					Kind:   ErrUnknownPeriod,
					Sample: name,
					Detail: "period " + label + " is not defined; " + vocab.DescribeKnown("periods", vocab.PeriodLabels()),
				}
			}
			ranges = append(ranges, rr)
		}
	}

	runs := map[int]runChoice{}
	for _, dir := range dirs {
		dsName := filepath.Base(dir)
		ds, ok := naming.ParseData(dsName)
		if !ok {
			r.logger.Warn("directory is not a valid dataset name", "sample", name, "dir", dsName)
			continue
		}
		if periods != nil && !inAnyRange(ds.Run, ranges) {
			continue
		}
		prev, seen := runs[ds.Run]
		if !seen {
			runs[ds.Run] = runChoice{edition: ds.Edition, dir: dir}
			continue
		}
		r.logger.Warn("multiple editions of dataset exist", "sample", name, "dir", dsName, "run", ds.Run)
		// Equal editions keep the first directory seen.
		if ds.Edition > prev.edition {
			runs[ds.Run] = runChoice{edition: ds.Edition, dir: dir}
		}
	}

	runNumbers := make([]int, 0, len(runs))
	for run := range runs {
		runNumbers = append(runNumbers, run)
	}
	sort.Ints(runNumbers)
	files := []string{}
	for _, run := range runNumbers {
		files = append(files, r.dataFiles(runs[run].dir)...)
	}

	sampleName := name
	if periods != nil {
		sampleName += strings.Join(periods, "")
	}
	return files, sampleName, nil
}

func inAnyRange(run int, ranges []model.RunRange) bool {
	for _, rr := range ranges {
		if rr.Contains(run) {
			return true
		}
	}
	return false
}

// candidateDirs lists the immediate child directories of base, following
// symlinks, in name order.
func candidateDirs(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, entry := range entries {
		path := filepath.Join(base, entry.Name())
		if entry.IsDir() {
			dirs = append(dirs, path)
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				dirs = append(dirs, path)
			}
		}
	}
	return dirs, nil
}

// dataFiles returns the entries of dir whose names contain the data-file
// marker. Hidden entries and subdirectories are ignored.
func (r *Resolver) dataFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Warn("failed to list dataset directory", "dir", dir, "err", err)
		return nil
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.Contains(name, dataFileMarker) {
			files = append(files, filepath.Join(dir, name))
		}
	}
	r.logger.Debug("collected data files", "dir", filepath.Base(dir), "count", len(files))
	return files
}
