package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	is.Equal(c.GetInt(ConfigPlies), 9)
	is.Equal(c.GetString(ConfigAlgorithm), "alphabeta")
	is.True(c.GetBool(ConfigIterativeDeepening))
	is.NoErr(c.Validate())
}

func TestLoadFlagsAndArgs(t *testing.T) {
	is := is.New(t)
	c := &Config{}
	rest, err := c.Load([]string{"--plies", "5", "--debug", "search", "negascout"})
	is.NoErr(err)
	is.Equal(rest, []string{"search", "negascout"})
	is.Equal(c.GetInt(ConfigPlies), 5)
	is.True(c.GetBool(ConfigDebug))
	is.Equal(c.GetInt(ConfigThreads), 1)
}

func TestLoadEnv(t *testing.T) {
	is := is.New(t)
	t.Setenv("ASEARCH_THREADS", "4")
	t.Setenv("ASEARCH_TTABLE_MEMORY_MB", "64")
	c := &Config{}
	_, err := c.Load(nil)
	is.NoErr(err)
	is.Equal(c.GetInt(ConfigThreads), 4)
	is.Equal(c.GetInt(ConfigTTableMemoryMB), 64)

	// flags win over the environment
	c = &Config{}
	_, err = c.Load([]string{"--threads", "2"})
	is.NoErr(err)
	is.Equal(c.GetInt(ConfigThreads), 2)
}

func TestLoadConfigFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "asearch.yaml")
	is.NoErr(os.WriteFile(path, []byte("algorithm: negascout\nplies: 7\n"), 0o644))

	c := &Config{}
	_, err := c.Load([]string{"--config", path})
	is.NoErr(err)
	is.Equal(c.GetString(ConfigAlgorithm), "negascout")
	is.Equal(c.GetInt(ConfigPlies), 7)

	c = &Config{}
	_, err = c.Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	is.True(err != nil)
}

func TestValidate(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	c.Set(ConfigPlies, 0)
	is.True(c.Validate() != nil)

	c = DefaultConfig()
	c.Set(ConfigTTableMemFraction, 1.5)
	is.True(c.Validate() != nil)
}
