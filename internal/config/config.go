package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/rflorenc/shopify-metadata-migrator/internal/logging"
	"github.com/rflorenc/shopify-metadata-migrator/internal/migration"
	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
	"github.com/rflorenc/shopify-metadata-migrator/internal/platform"
)

// Environment variables consulted when no token is given on the command line
// or in the config file.
const (
	EnvSourceToken = "SHOPIFY_SOURCE_TOKEN"
	EnvTargetToken = "SHOPIFY_TARGET_TOKEN"
)

const defaultListen = ":8080"

// StoreConfig represents a pre-configured store in the config file.
type StoreConfig struct {
	Name       string `yaml:"name"`
	Domain     string `yaml:"domain"`
	Token      string `yaml:"token"`
	APIVersion string `yaml:"apiVersion"`
}

// Config holds all configuration (CLI flags + config file).
type Config struct {
	SourceStore             string        `yaml:"sourceStore"`
	SourceToken             string        `yaml:"sourceToken"`
	TargetStore             string        `yaml:"targetStore"`
	TargetToken             string        `yaml:"targetToken"`
	Metafields              bool          `yaml:"metafields"`
	Metaobjects             bool          `yaml:"metaobjects"`
	ShopifyObjectTypes      []string      `yaml:"shopifyObjectTypes"`
	APIVersion              string        `yaml:"apiVersion"`
	SkipMetafieldReferences bool          `yaml:"skipMetafieldReferences"`
	Timeout                 time.Duration `yaml:"timeout"`
	Listen                  string        `yaml:"listen"`
	Stores                  []StoreConfig `yaml:"stores"`

	Quiet       bool `yaml:"-"`
	Verbose     bool `yaml:"-"`
	Debug       bool `yaml:"-"`
	DryRun      bool `yaml:"-"`
	Serve       bool `yaml:"-"`
	ShowVersion bool `yaml:"-"`

	// internal: path to config file (from CLI flag)
	configFile string
}

// short flag aliases mapped to their long names
var aliases = map[string]string{
	"s": "sourceStore",
	"S": "sourceToken",
	"t": "targetStore",
	"T": "targetToken",
	"m": "metafields",
	"M": "metaobjects",
	"o": "shopifyObjectTypes",
	"a": "apiVersion",
	"q": "quiet",
	"v": "verbose",
	"d": "debug",
	"V": "version",
}

// Parse reads CLI flags, then overlays config file values and environment
// tokens. CLI flags take precedence over config file values, which take
// precedence over the environment.
//
// A request for help returns flag.ErrHelp after printing usage to out.
// Validation errors are returned before any network I/O.
func Parse(args []string, out io.Writer) (*Config, error) {
	c := &Config{}
	var ownerTypes string

	fs := flag.NewFlagSet("shopify-metadata-migrator", flag.ContinueOnError)
	fs.SetOutput(out)
	stringFlag(fs, &c.SourceStore, "sourceStore", "", "Source store handle or domain")
	stringFlag(fs, &c.SourceToken, "sourceToken", "", "Source Admin API access token (or $"+EnvSourceToken+")")
	stringFlag(fs, &c.TargetStore, "targetStore", "", "Target store handle or domain")
	stringFlag(fs, &c.TargetToken, "targetToken", "", "Target Admin API access token (or $"+EnvTargetToken+")")
	boolFlag(fs, &c.Metafields, "metafields", "Migrate metafield definitions")
	boolFlag(fs, &c.Metaobjects, "metaobjects", "Migrate metaobject definitions")
	stringFlag(fs, &ownerTypes, "shopifyObjectTypes", "", "Comma separated metafield owner types, e.g. PRODUCT,COLLECTION")
	stringFlag(fs, &c.APIVersion, "apiVersion", "", "Admin API version (default "+models.DefaultAPIVersion+")")
	boolFlag(fs, &c.Quiet, "quiet", "Only print the summary counts")
	boolFlag(fs, &c.Verbose, "verbose", "Log field-level details")
	boolFlag(fs, &c.Debug, "debug", "Log GraphQL requests and responses")
	boolFlag(fs, &c.ShowVersion, "version", "Print version and exit")
	fs.StringVar(&c.configFile, "config", "", "Path to config file (YAML)")
	fs.BoolVar(&c.DryRun, "dryRun", false, "Fetch and classify definitions without creating anything")
	fs.BoolVar(&c.SkipMetafieldReferences, "skipMetafieldReferences", false, "Skip metafield definitions typed as metaobject references")
	fs.DurationVar(&c.Timeout, "timeout", 0, "HTTP request timeout (0 = none)")
	fs.BoolVar(&c.Serve, "serve", false, "Run the HTTP API instead of a one-shot migration")
	fs.StringVar(&c.Listen, "listen", "", "HTTP listen address for --serve (default "+defaultListen+")")
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: shopify-metadata-migrator [flags]\n\n")
		fmt.Fprintf(out, "Copies metaobject and metafield definitions from one store to another.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.NotValidf("unexpected arguments %v", fs.Args())
	}
	if c.ShowVersion {
		return c, nil
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		set[name] = true
	})
	if set["shopifyObjectTypes"] {
		c.ShopifyObjectTypes = migration.ParseOwnerTypes(ownerTypes)
	}

	if c.configFile != "" {
		if err := c.loadFile(c.configFile, set); err != nil {
			return nil, errors.Annotate(err, "loading config file")
		}
	}
	c.applyEnv()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func stringFlag(fs *flag.FlagSet, p *string, name, value, usage string) {
	fs.StringVar(p, name, value, usage)
	if short := shortName(name); short != "" {
		fs.StringVar(p, short, value, "Shorthand for --"+name)
	}
}

func boolFlag(fs *flag.FlagSet, p *bool, name, usage string) {
	fs.BoolVar(p, name, false, usage)
	if short := shortName(name); short != "" {
		fs.BoolVar(p, short, false, "Shorthand for --"+name)
	}
}

func shortName(long string) string {
	for short, l := range aliases {
		if l == long {
			return short
		}
	}
	return ""
}

// loadFile reads a YAML config file. Values from the file are only applied
// if the corresponding CLI flag was not explicitly set.
func (c *Config) loadFile(path string, set map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotatef(err, "reading %s", path)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Annotatef(err, "parsing %s", path)
	}

	overlayString(&c.SourceStore, file.SourceStore, set["sourceStore"])
	overlayString(&c.SourceToken, file.SourceToken, set["sourceToken"])
	overlayString(&c.TargetStore, file.TargetStore, set["targetStore"])
	overlayString(&c.TargetToken, file.TargetToken, set["targetToken"])
	overlayString(&c.APIVersion, file.APIVersion, set["apiVersion"])
	overlayString(&c.Listen, file.Listen, set["listen"])
	if !set["metafields"] {
		c.Metafields = c.Metafields || file.Metafields
	}
	if !set["metaobjects"] {
		c.Metaobjects = c.Metaobjects || file.Metaobjects
	}
	if !set["skipMetafieldReferences"] {
		c.SkipMetafieldReferences = c.SkipMetafieldReferences || file.SkipMetafieldReferences
	}
	if !set["shopifyObjectTypes"] && len(file.ShopifyObjectTypes) > 0 {
		c.ShopifyObjectTypes = migration.ParseOwnerTypes(strings.Join(file.ShopifyObjectTypes, ","))
	}
	if !set["timeout"] && file.Timeout > 0 {
		c.Timeout = file.Timeout
	}

	// Stores always come from config file
	c.Stores = file.Stores

	return nil
}

func overlayString(dst *string, fileValue string, setOnCLI bool) {
	if !setOnCLI && fileValue != "" {
		*dst = fileValue
	}
}

func (c *Config) applyEnv() {
	if c.SourceToken == "" {
		c.SourceToken = os.Getenv(EnvSourceToken)
	}
	if c.TargetToken == "" {
		c.TargetToken = os.Getenv(EnvTargetToken)
	}
}

func (c *Config) applyDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = models.DefaultAPIVersion
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	for i := range c.Stores {
		if c.Stores[i].APIVersion == "" {
			c.Stores[i].APIVersion = c.APIVersion
		}
	}
}

type requiredFlag struct {
	name  string
	value string
}

// Validate checks the configuration. Serve mode only needs a valid API
// version and well-formed stores; migrations are described per request.
func (c *Config) Validate() error {
	if err := platform.ValidateAPIVersion(c.APIVersion); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return errors.NotValidf("negative timeout %s", c.Timeout)
	}
	for _, s := range c.Stores {
		if s.Name == "" || s.Domain == "" {
			return errors.NotValidf("store entry %+v (name and domain are required)", StoreConfig{Name: s.Name, Domain: s.Domain})
		}
		if err := platform.ValidateAPIVersion(s.APIVersion); err != nil {
			return errors.Annotatef(err, "store %s", s.Name)
		}
	}
	if c.Serve {
		return nil
	}

	required := []requiredFlag{
		{"--sourceStore", c.SourceStore},
		{"--sourceToken", c.SourceToken},
	}
	if !c.DryRun {
		required = append(required,
			requiredFlag{"--targetStore", c.TargetStore},
			requiredFlag{"--targetToken", c.TargetToken},
		)
	}
	for _, r := range required {
		if r.value == "" {
			return errors.NewNotValid(nil, r.name+" is required")
		}
	}
	return c.Options().Validate()
}

// Options returns the migration options selected by this configuration.
func (c *Config) Options() migration.Options {
	return migration.Options{
		MigrateMetaobjects:      c.Metaobjects,
		MigrateMetafields:       c.Metafields,
		OwnerTypes:              c.ShopifyObjectTypes,
		APIVersion:              c.APIVersion,
		SkipMetafieldReferences: c.SkipMetafieldReferences,
	}
}

// LogLevel resolves the verbosity flags.
func (c *Config) LogLevel() logging.Level {
	return logging.ResolveLevel(c.Quiet, c.Verbose, c.Debug)
}

// Source returns the source store described on the command line.
func (c *Config) Source() *models.Store {
	return &models.Store{Name: "source", Domain: c.SourceStore, Token: c.SourceToken, APIVersion: c.APIVersion}
}

// Target returns the target store described on the command line.
func (c *Config) Target() *models.Store {
	return &models.Store{Name: "target", Domain: c.TargetStore, Token: c.TargetToken, APIVersion: c.APIVersion}
}
