package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
)

const (
	OutputText = "text"
	OutputJSON = "json"
)

type OutputFormat string

type Config struct {
	DBPath      string
	SessionID   int64
	List        bool
	Format      OutputFormat
	StartTimeMs *int64
	EndTimeMs   *int64
	AllChannels bool
}

var validOutputFormats = map[OutputFormat]struct{}{
	OutputText: {},
	OutputJSON: {},
}

func NewConfig() *Config {
	return &Config{
		Format: OutputText,
	}
}

// NewConfigFromCLI parses the command line flags.
func NewConfigFromCLI() (*Config, error) {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var outputFormat string
	var startMs, endMs int64
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.SessionID, "s", 0, "Session ID")
	fs.BoolVar(&c.List, "list", false, "List the stored sessions")
	fs.StringVar(&outputFormat, "f", string(OutputText), "Output format. [text, json]")
	fs.Int64Var(&startMs, "from", 0, "Include samples from this session time, in milliseconds")
	fs.Int64Var(&endMs, "to", 0, "Include samples up to this session time, in milliseconds")
	fs.BoolVar(&c.AllChannels, "all", false, "Include channels that stayed at zero")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	outputFormat = strings.ToLower(outputFormat)

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "from" {
			c.StartTimeMs = &startMs
		}
		if f.Name == "to" {
			c.EndTimeMs = &endMs
		}
	})

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if !c.List && c.SessionID <= 0 {
		err = errors.New("session id is required")
	} else if _, ok := validOutputFormats[OutputFormat(outputFormat)]; !ok {
		err = fmt.Errorf("invalid output format: %s", outputFormat)
	} else if c.StartTimeMs != nil && c.EndTimeMs != nil && *c.StartTimeMs > *c.EndTimeMs {
		err = errors.New("start time must not be after end time")
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = OutputFormat(outputFormat)
	return c, nil
}
