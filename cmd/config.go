// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/providers"
	"github.com/johndoehack/mobile-locator/spatial"
	"github.com/johndoehack/mobile-locator/utils/httputils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the layout of the --config file:
//
//	defaults:
//	  timeout: 8s
//	  system: gcj02
//	providers:
//	  opencellid:
//	    key: pk.0123
//	  gpsspg:
//	    oid: "1234"
//	    key: abcd
//	google:
//	  adc: true
type Config struct {
	Defaults  locator.Options             `yaml:"defaults"`
	Providers map[string]*locator.Options `yaml:"providers"`
	Google    GoogleConfig                `yaml:"google"`
}

// GoogleConfig drives the Application Default Credentials key lookup.
type GoogleConfig struct {
	ADC            bool   `yaml:"adc"`
	Project        string `yaml:"project"`
	KeyDisplayName string `yaml:"key_display_name"`
}

// LoadConfig reads and validates a config file. An empty path yields an
// empty config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := normalizeSystem(&cfg.Defaults); err != nil {
		return nil, fmt.Errorf("config %s defaults: %w", path, err)
	}

	for name, opts := range cfg.Providers {
		if _, err := providers.Find(name); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}

		if opts == nil {
			continue
		}

		if err := normalizeSystem(opts); err != nil {
			return nil, fmt.Errorf("config %s provider %s: %w", path, name, err)
		}
	}

	return cfg, nil
}

func normalizeSystem(o *locator.Options) error {
	if o.System == "" {
		return nil
	}

	system, err := spatial.ParseSystem(string(o.System))
	if err != nil {
		return err
	}

	o.System = system

	return nil
}

// envCredentials lists the environment variables read for each provider.
var envCredentials = []struct {
	provider   string
	credential string
	variable   string
}{
	{"google", "key", "GOOGLE_API_KEY"},
	{"gpsspg", "oid", "GPSSPG_OID"},
	{"gpsspg", "key", "GPSSPG_KEY"},
	{"haoservice", "key", "HAOSERVICE_KEY"},
	{"mozilla", "key", "MOZILLA_API_KEY"},
	{"opencellid", "key", "OPENCELLID_KEY"},
	{"unwiredlabs", "token", "UNWIREDLABS_TOKEN"},
	{"yandex", "key", "YANDEX_KEY"},
}

func envOptions(provider string, getenv func(string) string) *locator.Options {
	o := &locator.Options{}

	for _, e := range envCredentials {
		if e.provider != provider {
			continue
		}

		if v := getenv(e.variable); v != "" {
			setCredential(o, e.credential, v)
		}
	}

	return o
}

func setCredential(o *locator.Options, name, value string) {
	switch name {
	case "key":
		o.Key = value
	case "token":
		o.Token = value
	case "oid":
		o.OID = value
	}
}

// merge copies the fields set in src over dst.
func merge(dst, src *locator.Options) {
	if src == nil {
		return
	}

	if src.Key != "" {
		dst.Key = src.Key
	}

	if src.Token != "" {
		dst.Token = src.Token
	}

	if src.OID != "" {
		dst.OID = src.OID
	}

	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}

	if src.System != "" {
		dst.System = src.System
	}

	if src.Data != "" {
		dst.Data = src.Data
	}

	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}

	for k, v := range src.Extra {
		if dst.Extra == nil {
			dst.Extra = make(map[string]string)
		}

		dst.Extra[k] = v
	}
}

// load runs before every command: environment, config file, logger and
// HTTP client.
func (g *globalOptions) load(_ context.Context) error {
	if g.EnvFile != "" {
		if err := godotenv.Load(g.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", g.EnvFile, err)
		}
	}

	cfg, err := LoadConfig(g.ConfigPath)
	if err != nil {
		return err
	}

	g.config = cfg

	if g.Verbose {
		if g.logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
	} else {
		g.logger = zap.NewNop()
	}

	clientOptions := &httputils.ClientOptions{UserAgent: "mobile-locator/" + Version}
	if g.HTTPTrace {
		clientOptions.Trace = os.Stderr
	}

	g.client = httputils.NewClient(clientOptions)

	return nil
}

// options returns the engine options for provider. Precedence, lowest
// first: environment, config defaults, config provider section, flags.
func (g *globalOptions) options(ctx context.Context, provider string, flags *locator.Options) (*locator.Options, error) {
	o := envOptions(provider, os.Getenv)

	if g.config != nil {
		merge(o, &g.config.Defaults)
		merge(o, g.config.Providers[provider])
	}

	merge(o, flags)

	if err := normalizeSystem(o); err != nil {
		return nil, err
	}

	o.Logger = g.logger
	o.HTTPClient = g.client

	if provider == "google" && o.Key == "" && g.useADC() {
		key, err := g.googleKey(ctx)
		if err != nil {
			return nil, err
		}

		o.Key = key
	}

	return o, nil
}

func (g *globalOptions) useADC() bool {
	return g.GoogleADC || (g.config != nil && g.config.Google.ADC)
}

func (g *globalOptions) googleKey(ctx context.Context) (string, error) {
	if g.adcKey != "" {
		return g.adcKey, nil
	}

	project := g.GCPProject
	displayName := ""

	if g.config != nil {
		if project == "" {
			project = g.config.Google.Project
		}

		displayName = g.config.Google.KeyDisplayName
	}

	key, err := getAPIKeyFromADC(ctx, project, displayName)
	if err != nil {
		return "", fmt.Errorf("google key via ADC: %w", err)
	}

	log.Println("Retrieved Google API key via ADC")

	g.adcKey = key

	return key, nil
}
