package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug              = "debug"
	ConfigTTableMemoryMB     = "ttable-memory-mb"
	ConfigTTableMemFraction  = "ttable-memory-fraction"
	ConfigAlgorithm          = "algorithm"
	ConfigPlies              = "plies"
	ConfigThreads            = "threads"
	ConfigIterativeDeepening = "iterative-deepening"
	ConfigLogStream          = "log-stream"
	ConfigCPUProfile         = "cpu-profile"
	ConfigExecute            = "execute"
)

const envPrefix = "ASEARCH"

// Config is a viper instance loaded from flags, the environment and an
// optional asearch.yaml, in decreasing order of precedence.
type Config struct {
	*viper.Viper
	configFile string
}

func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDebug, false)
	// 0 sizes the table from a fraction of system memory.
	c.SetDefault(ConfigTTableMemoryMB, 0)
	c.SetDefault(ConfigTTableMemFraction, 0.25)
	c.SetDefault(ConfigAlgorithm, "alphabeta")
	c.SetDefault(ConfigPlies, 9)
	c.SetDefault(ConfigThreads, 1)
	c.SetDefault(ConfigIterativeDeepening, true)
	c.SetDefault(ConfigLogStream, "")
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigExecute, "")
}

// Load parses args and reads the environment. Positional arguments are
// returned so that the caller can run them as a shell command.
func (c *Config) Load(args []string) ([]string, error) {
	if c.Viper == nil {
		c.Viper = viper.New()
	}
	c.setDefaults()

	fs := pflag.NewFlagSet("asearch", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.Int(ConfigTTableMemoryMB, 0, "transposition table size in MB; 0 uses a fraction of system memory")
	fs.Float64(ConfigTTableMemFraction, 0.25, "fraction of system memory for the transposition table")
	fs.String(ConfigAlgorithm, "alphabeta", "search algorithm: alphabeta, minimax or negascout")
	fs.Int(ConfigPlies, 9, "default search depth")
	fs.Int(ConfigThreads, 1, "search threads; more than 1 enables lazy SMP")
	fs.Bool(ConfigIterativeDeepening, true, "search with iterative deepening")
	fs.String(ConfigLogStream, "", "write the search trace to this file")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(ConfigExecute, "", "run this shell command and exit")
	fs.StringVar(&c.configFile, "config", "", "config file (default ./asearch.yaml if present)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := c.BindPFlags(fs); err != nil {
		return nil, err
	}

	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if c.configFile != "" {
		c.SetConfigFile(c.configFile)
	} else {
		c.SetConfigName("asearch")
		c.SetConfigType("yaml")
		c.AddConfigPath(".")
	}
	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		log.Debug().Msg("no config file found; using flags and environment")
	}
	return fs.Args(), nil
}

func (c *Config) Validate() error {
	if c.GetInt(ConfigPlies) < 1 {
		return fmt.Errorf("%s must be at least 1", ConfigPlies)
	}
	if c.GetInt(ConfigThreads) < 1 {
		return fmt.Errorf("%s must be at least 1", ConfigThreads)
	}
	f := c.GetFloat64(ConfigTTableMemFraction)
	if f <= 0 || f > 1 {
		return fmt.Errorf("%s must be in (0, 1]", ConfigTTableMemFraction)
	}
	return nil
}

// Settings returns the effective settings in key order, for display.
func (c *Config) Settings() string {
	keys := c.AllKeys()
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %v\n", k, c.Get(k))
	}
	return sb.String()
}
