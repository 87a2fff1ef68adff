// Package config loads pushhooks settings from a YAML file and PUSHHOOKS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thiagokokada/pushhooks/internal/dispatch"
	"github.com/thiagokokada/pushhooks/internal/feed"
	"github.com/thiagokokada/pushhooks/internal/version"
)

const (
	envPrefix  = "PUSHHOOKS"
	configName = "pushhooks"
)

type Config struct {
	Build   Build   `mapstructure:"build"`
	Feed    Feed    `mapstructure:"feed"`
	Publish Publish `mapstructure:"publish"`
}

type Build struct {
	Endpoint     string        `mapstructure:"endpoint"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MetadataFile string        `mapstructure:"metadata_file"`
	VersionLabel string        `mapstructure:"version_label"`
}

type Feed struct {
	Dir         string        `mapstructure:"dir"`
	DevelFile   string        `mapstructure:"devel_file"`
	ReleaseFile string        `mapstructure:"release_file"`
	Length      int           `mapstructure:"length"`
	LinkBase    string        `mapstructure:"link_base"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	Title       string        `mapstructure:"title"`
	Link        string        `mapstructure:"link"`
	Description string        `mapstructure:"description"`
	Language    string        `mapstructure:"language"`
}

type Publish struct {
	Command []string      `mapstructure:"command"`
	Delay   time.Duration `mapstructure:"delay"`
}

// Options locate the configuration file.
type Options struct {
	// File is an explicit path; it must exist.
	File string
	// RepoDir is searched for pushhooks.yaml before the home and system
	// directories.
	RepoDir string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build.endpoint", dispatch.DefaultEndpoint)
	v.SetDefault("build.timeout", 30*time.Second)
	v.SetDefault("build.metadata_file", "DESCRIPTION")
	v.SetDefault("build.version_label", version.DefaultLabel)
	v.SetDefault("feed.dir", "/home/git/rss")
	v.SetDefault("feed.devel_file", "gitlog.xml")
	v.SetDefault("feed.release_file", "gitlog.release.xml")
	v.SetDefault("feed.length", feed.DefaultLength)
	v.SetDefault("feed.link_base", feed.DefaultLinkBase)
	v.SetDefault("feed.lock_timeout", time.Duration(0))
	v.SetDefault("feed.title", "Bioconductor Git Log")
	v.SetDefault("feed.link", "https://bioconductor.org/")
	v.SetDefault("feed.description", "Recent commits to Bioconductor packages")
	v.SetDefault("feed.language", "en-us")
	v.SetDefault("publish.command", []string{})
	v.SetDefault("publish.delay", feed.DefaultPublishDelay)
}

// defaults returns the built-in configuration.
func defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load merges defaults, the first configuration file found and the
// environment, in increasing precedence.
func Load(opts Options) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case opts.File != "":
		v.SetConfigFile(opts.File)
	case os.Getenv(envPrefix+"_CONFIG") != "":
		v.SetConfigFile(os.Getenv(envPrefix + "_CONFIG"))
	default:
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if opts.RepoDir != "" {
			v.AddConfigPath(opts.RepoDir)
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pushhooks"))
		}
		v.AddConfigPath("/etc/pushhooks")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Build.Endpoint == "" {
		errs = append(errs, errors.New("build.endpoint is empty"))
	}
	if c.Build.MetadataFile == "" {
		errs = append(errs, errors.New("build.metadata_file is empty"))
	}
	if c.Build.VersionLabel == "" {
		errs = append(errs, errors.New("build.version_label is empty"))
	}
	if c.Feed.Length <= 0 {
		errs = append(errs, fmt.Errorf("feed.length must be positive, got %d", c.Feed.Length))
	}
	if c.Feed.DevelFile == "" || c.Feed.ReleaseFile == "" {
		errs = append(errs, errors.New("feed.devel_file and feed.release_file must be set"))
	}
	if c.Feed.LockTimeout < 0 {
		errs = append(errs, errors.New("feed.lock_timeout must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// FeedPath returns the document recording pushes to branch.
func (c Config) FeedPath(branch feed.Branch) string {
	if branch == feed.Release {
		return filepath.Join(c.Feed.Dir, c.Feed.ReleaseFile)
	}
	return filepath.Join(c.Feed.Dir, c.Feed.DevelFile)
}

// FeedFiles lists the document names in the order they are published.
func (c Config) FeedFiles() []string {
	return []string{c.Feed.DevelFile, c.Feed.ReleaseFile}
}

// Header is the channel header written to new documents.
func (c Config) Header() feed.Header {
	return feed.Header{
		Title:       c.Feed.Title,
		Link:        c.Feed.Link,
		Description: c.Feed.Description,
		Language:    c.Feed.Language,
	}
}
