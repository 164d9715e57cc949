// Package resolver turns a sample directory into a resolved sample record.
package resolver

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/verte-zerg/samplecat/internal/meta"
	"github.com/verte-zerg/samplecat/internal/model"
	"github.com/verte-zerg/samplecat/internal/vocab"
)

// Config configures a Resolver.
type Config struct {
	// Root is the directory holding one subdirectory per sample.
	Root string
	// Constants are the named values usable in weight expressions.
	Constants map[string]float64
	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger
}

// Options narrows a single resolution.
type Options struct {
	// Periods restricts recorded data to runs inside any listed period.
	// Nil disables the filter.
	Periods []string
}

// Resolver resolves samples beneath a data root. It only reads the
// filesystem and is safe for concurrent use.
type Resolver struct {
	root      string
	constants map[string]float64
	logger    *log.Logger
}

// New returns a Resolver for cfg.
func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	constants := make(map[string]float64, len(cfg.Constants))
	for k, v := range cfg.Constants {
		constants[k] = v
	}
	return &Resolver{root: cfg.Root, constants: constants, logger: logger}
}

// Root returns the data root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve validates the layout of sample name, reads its metadata,
// classifies it and aggregates its data files. On failure the returned error
// is an *Error and a diagnostic has been logged.
func (r *Resolver) Resolve(name string, opts Options) (model.Sample, error) {
	base := filepath.Join(r.root, name)
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		return r.fail(&Error{Kind: ErrSampleNotFound, Sample: name, Path: base})
	}
	metaPath := filepath.Join(base, meta.FileName)
	if info, err := os.Stat(metaPath); err != nil || !info.Mode().IsRegular() {
		return r.fail(&Error{Kind: ErrMetadataMissing, Sample: name, Path: metaPath})
	}

	md, err := meta.Load(metaPath, r.constants)
	if err != nil {
		return r.fail(&Error{Kind: ErrMetadataMalformed, Sample: name, Path: metaPath, Detail: err.Error()})
	}

	classType, ok := vocab.ParseClassType(md.Class)
	if !ok {
		return r.fail(&Error{
			Kind:   ErrUnknownClass,
			Sample: name,
			Detail: "class " + md.Class + " is not defined; " + vocab.DescribeKnown("classes", vocab.ClassLabels()),
		})
	}
	dataType, ok := vocab.ParseDataType(md.Type)
	if !ok {
		return r.fail(&Error{
			Kind:   ErrUnknownType,
			Sample: name,
			Detail: "datatype " + md.Type + " is not defined; " + vocab.DescribeKnown("datatypes", vocab.DataTypeLabels()),
		})
	}

	files, sampleName, err := r.aggregate(name, base, dataType, opts.Periods)
	if err != nil {
		var rerr *Error
		if errors.As(err, &rerr) {
			return r.fail(rerr)
		}
		return r.fail(&Error{Kind: ErrSampleNotFound, Sample: name, Path: base, Detail: err.Error()})
	}

	return model.Sample{
		Name:      sampleName,
		DataType:  dataType,
		ClassType: classType,
		Tree:      md.Tree,
		Weight:    md.Weight,
		Files:     files,
	}, nil
}

func (r *Resolver) fail(err *Error) (model.Sample, error) {
	r.logger.Error(err.Error())
	return model.Sample{}, err
}
