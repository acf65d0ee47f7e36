package config

import (
	"flag"
	"io"
)

// CLIFlags holds command line overrides. Nil fields were not set on the
// command line and must not override anything.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	SpecPath   *string
	NatsURL    *string
}

// ParseFlags parses command line arguments (without the program name).
// Flags win over both YAML and environment variables.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("scriptforge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", *configPath, "shorthand for --config")
	port := fs.String("port", "", "HTTP listen port")
	fs.StringVar(port, "p", *port, "shorthand for --port")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	specPath := fs.String("spec", "", "path to the API spec file")
	natsURL := fs.String("nats-url", "", "NATS server URL")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, err
	}

	var flags CLIFlags
	if *configPath != "" {
		flags.ConfigPath = configPath
	}
	if *port != "" {
		flags.Port = port
	}
	if *logLevel != "" {
		flags.LogLevel = logLevel
	}
	if *specPath != "" {
		flags.SpecPath = specPath
	}
	if *natsURL != "" {
		flags.NatsURL = natsURL
	}
	return flags, nil
}

// LoadWithCLI loads configuration with CLI flags applied on top of the
// defaults < YAML < ENV hierarchy. It returns the resolved YAML path.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	yamlPath := DefaultConfigFile
	if flags.ConfigPath != nil {
		yamlPath = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, "", err
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", err
	}
	return &cfg, yamlPath, nil
}

func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.SpecPath != nil {
		cfg.Spec.Path = *flags.SpecPath
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
}
