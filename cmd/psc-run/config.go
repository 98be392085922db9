package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/inhies/go-bytesize"
	"github.com/limechain/tuplegc/gc"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

// Heap settings, from the config file and the command line. Sizes are plain
// byte counts or sizes with a unit ("64KB", "1MB").
type options struct {
	StackSize   string `yaml:"stack_size"`
	HeapSize    string `yaml:"heap_size"`
	MaxHeapSize string `yaml:"max_heap_size"`
	PageSize    string `yaml:"page_size"`
	Verbose     bool   `yaml:"verbose"`
}

// Reads the config file, if any, and applies the flags on top of it.
func loadOptions(c *cli.Context) (options, error) {
	var opts options
	if path := c.String("config"); path != "" {
		if err := readConfigFile(path, &opts); err != nil {
			return opts, err
		}
	}
	for name, dst := range map[string]*string{
		"stack-size":    &opts.StackSize,
		"heap-size":     &opts.HeapSize,
		"max-heap-size": &opts.MaxHeapSize,
		"page-size":     &opts.PageSize,
	} {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if c.Bool("verbose") {
		opts.Verbose = true
	}
	return opts, nil
}

func readConfigFile(path string, opts *options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	if err := yaml.UnmarshalStrict(data, opts); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// Converts the options to a heap configuration. Unset sizes keep their
// defaults.
func (o options) heapConfig() (gc.Config, error) {
	cfg := gc.DefaultConfig()
	for _, size := range []struct {
		name  string
		value string
		dst   *uint64
	}{
		{"stack_size", o.StackSize, &cfg.StackSize},
		{"heap_size", o.HeapSize, &cfg.HeapSize},
		{"max_heap_size", o.MaxHeapSize, &cfg.MaxHeapSize},
		{"page_size", o.PageSize, &cfg.PageSize},
	} {
		if size.value == "" {
			continue
		}
		n, err := parseSize(size.value)
		if err != nil {
			return cfg, errors.WithMessage(err, size.name)
		}
		*size.dst = n
	}
	return cfg, nil
}

func parseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	b, err := bytesize.Parse(s)
	if err != nil || b < 0 {
		return 0, errors.Errorf("invalid size %q", s)
	}
	return uint64(b), nil
}
