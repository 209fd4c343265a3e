package core

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultServer      = "http://localhost:5000"
	defaultConcurrency = 4
)

type ValidationError struct {
	Arg   string
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Cause)
}

type PathKind int

const (
	PathFile PathKind = iota
	PathDir
)

type ParsedPath struct {
	FullPath string
	Kind     PathKind
}

// Options is a parsed olh command line.
type Options struct {
	Server      string
	Token       string
	Concurrency int
	Metadata    Metadata
	Paths       []ParsedPath
}

// ParseFlags parses the olh command line. The server and token fall back to
// OLH_SERVER and OLH_TOKEN. Usage errors are written to output.
func ParseFlags(args []string, output io.Writer) (*Options, error) {
	opts := &Options{}
	fs := flag.NewFlagSet("olh", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(output, "usage: olh [flags] <files or directories>")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.Server, "server", envOr("OLH_SERVER", defaultServer), "OLH server base URL")
	fs.StringVar(&opts.Token, "token", os.Getenv("OLH_TOKEN"), "bearer token from /api/auth/login")
	fs.IntVar(&opts.Concurrency, "concurrency", defaultConcurrency, "parallel uploads")
	fs.StringVar(&opts.Metadata.Title, "title", "", "title (single file only; defaults to the file name)")
	fs.StringVar(&opts.Metadata.Subject, "subject", "", "subject (required)")
	fs.StringVar(&opts.Metadata.RegulationYear, "regulation", "", "regulation year: 2019, 2023 or other (required)")
	fs.StringVar(&opts.Metadata.MaterialType, "type", "", "notes, question-paper, syllabus, reference-book or other")
	fs.StringVar(&opts.Metadata.Source, "source", "", "internet, written or others")
	fs.StringVar(&opts.Metadata.Description, "description", "", "description")
	fs.StringVar(&opts.Metadata.LinkedRequest, "request", "", "id of the request this upload fulfills")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if strings.TrimSpace(opts.Token) == "" {
		return nil, &ValidationError{Arg: "-token", Cause: "a bearer token is required"}
	}
	if strings.TrimSpace(opts.Metadata.Subject) == "" {
		return nil, &ValidationError{Arg: "-subject", Cause: "subject is required"}
	}
	if strings.TrimSpace(opts.Metadata.RegulationYear) == "" {
		return nil, &ValidationError{Arg: "-regulation", Cause: "regulation year is required"}
	}
	if opts.Concurrency < 1 {
		return nil, &ValidationError{Arg: "-concurrency", Cause: "must be at least 1"}
	}
	opts.Server = strings.TrimRight(opts.Server, "/")

	paths, err := ParseArgs(fs.Args())
	if err != nil {
		return nil, err
	}
	opts.Paths = paths
	return opts, nil
}

// ParseArgs validates that every positional argument exists.
func ParseArgs(args []string) ([]ParsedPath, error) {
	if len(args) == 0 {
		return nil, &ValidationError{Arg: "<files>", Cause: "no files provided"}
	}

	var out []ParsedPath

	for _, raw := range args {
		p := filepath.Clean(raw)
		info, err := os.Stat(p)
		if err != nil {
			return nil, &ValidationError{Arg: raw, Cause: "not found or not accessible"}
		}

		kind := PathFile
		if info.IsDir() {
			kind = PathDir
		}

		out = append(out, ParsedPath{FullPath: p, Kind: kind})
	}

	return out, nil
}

// IsHelp reports whether err came from -h or -help.
func IsHelp(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
