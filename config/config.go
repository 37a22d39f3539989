// Package config loads the engine tunables from ranger.conf files.
//
// Configuration files are discovered by walking from the query directory
// up to the filesystem root. Files closer to the root form the base;
// files closer to the query directory override individual keys. A key
// missing from a file leaves the inherited value untouched.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"honnef.co/go/ranger/irange"
	"honnef.co/go/ranger/rangeop"
)

type config struct {
	cfg  Config
	meta toml.MetaData
}

func (cfg config) Merge(ocfg config) config {
	if ocfg.meta.IsDefined("max_pairs") {
		cfg.cfg.MaxPairs = ocfg.cfg.MaxPairs
	}
	if ocfg.meta.IsDefined("max_depth") {
		cfg.cfg.MaxDepth = ocfg.cfg.MaxDepth
	}
	if ocfg.meta.IsDefined("non_call_exceptions") {
		cfg.cfg.NonCallExceptions = ocfg.cfg.NonCallExceptions
	}
	if ocfg.meta.IsDefined("delete_null_pointer_checks") {
		cfg.cfg.DeleteNullPointerChecks = ocfg.cfg.DeleteNullPointerChecks
	}
	if ocfg.meta.IsDefined("trace") {
		cfg.cfg.Trace = ocfg.cfg.Trace
	}
	return cfg
}

type Config struct {
	// MaxPairs caps the number of sub-range pairs per range. Ranges that
	// would need more get their tail pairs blended together.
	MaxPairs int `toml:"max_pairs"`
	// MaxDepth caps how many operand definitions a single range query
	// may chase before giving up with varying.
	MaxDepth int `toml:"max_depth"`
	// NonCallExceptions keeps division by a possibly-zero divisor
	// varying instead of assuming the zero-divisor region unreachable.
	NonCallExceptions bool `toml:"non_call_exceptions"`
	// DeleteNullPointerChecks declares that no object lives at address
	// zero, letting pointer offsets of non-null pointers stay non-null.
	DeleteNullPointerChecks bool `toml:"delete_null_pointer_checks"`
	// Trace logs every query and its result.
	Trace bool `toml:"trace"`
}

var defaultConfig = Config{
	MaxPairs:                255,
	MaxDepth:                5,
	NonCallExceptions:       false,
	DeleteNullPointerChecks: true,
	Trace:                   false,
}

// Default returns the built-in configuration.
func Default() Config { return defaultConfig }

const configName = "ranger.conf"

func parseConfigs(dir string) ([]config, error) {
	var out []config

	for dir != "" {
		f, err := os.Open(filepath.Join(dir, configName))
		if os.IsNotExist(err) {
			ndir := filepath.Dir(dir)
			if ndir == dir {
				break
			}
			dir = ndir
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg Config
		meta, err := toml.DecodeReader(f, &cfg)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, config{cfg, meta})
		ndir := filepath.Dir(dir)
		if ndir == dir {
			break
		}
		dir = ndir
	}
	out = append(out, config{
		cfg:  defaultConfig,
		meta: toml.MetaData{}, // meta of the base config should never be accessed
	})
	if len(out) < 2 {
		return out, nil
	}
	for i := 0; i < len(out)/2; i++ {
		out[i], out[len(out)-1-i] = out[len(out)-1-i], out[i]
	}
	return out, nil
}

func mergeConfigs(confs []config) Config {
	if len(confs) == 0 {
		// This shouldn't happen because we always have at least a
		// default config.
		panic("trying to merge zero configs")
	}
	if len(confs) == 1 {
		return confs[0].cfg
	}
	conf := confs[0]
	for _, oconf := range confs[1:] {
		conf = conf.Merge(oconf)
	}
	return conf.cfg
}

func Load(dir string) (Config, error) {
	confs, err := parseConfigs(dir)
	if err != nil {
		return Config{}, err
	}
	conf := mergeConfigs(confs)
	if conf.MaxPairs < 1 {
		conf.MaxPairs = 1
	}
	if conf.MaxDepth < 1 {
		conf.MaxDepth = 1
	}
	return conf, nil
}

// Apply installs the process-wide tunables. The remaining fields are
// consumed by the engine constructor.
func Apply(conf Config) {
	irange.MaxPairs = conf.MaxPairs
	rangeop.NonCallExceptions = conf.NonCallExceptions
	rangeop.DeleteNullPointerChecks = conf.DeleteNullPointerChecks
}
