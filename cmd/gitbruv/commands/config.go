package commands

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/gitbruv/internal/app"
)

// envPrefix marks gitbruv's environment variables. A double underscore nests:
// GITBRUV_AUTH__CALLBACK__PORT sets auth.callback.port.
const envPrefix = "GITBRUV_"

// loadConfig layers every config source into one validated Config. Later layers win:
// built-in defaults, the TOML file at configPath, GITBRUV_ variables, then flags the
// user actually passed. Anything still unset is filled by Config.ApplyDefaults.
func loadConfig(configPath string, cmd *cli.Command, environFunc func() []string) (*app.Config, error) {
	k := koanf.New(".")

	// log_level's zero value is a valid level (info), so its default is seeded up front
	if err := k.Load(confmap.Provider(map[string]any{
		"log_level": app.DefaultConfigLogLevel.String(),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Optional TOML file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// GITBRUV_* environment
	envProvider := env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environFunc,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	// Explicit flags; nil cmd means flags are not in play (tests)
	if cmd != nil {
		flagValues := extractAndTransformFlags(cmd)
		if err := k.Load(confmap.Provider(flagValues, "."), nil); err != nil {
			return nil, fmt.Errorf("loading CLI flags: %w", err)
		}
	}

	config := &app.Config{}
	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func envKey(name, value string) (string, any) {
	key := strings.TrimPrefix(name, envPrefix)
	return strings.ToLower(strings.ReplaceAll(key, "__", ".")), value
}

// configFlagPrefixes marks flags that map onto config keys; everything else
// (command arguments like --title) is left out of the config.
var configFlagPrefixes = []string{"log-", "telemetry--", "shutdown--", "auth--", "broker--", "github--"}

// extractAndTransformFlags maps explicitly set config flags, including those declared on
// parent commands, onto koanf keys: --auth--callback--port becomes auth.callback.port and
// --log-level becomes log_level.
func extractAndTransformFlags(cmd *cli.Command) map[string]any {
	values := make(map[string]any)

	// FlagNames() includes flags from parent commands (via lineage)
	for _, name := range cmd.FlagNames() {
		if !isConfigFlag(name) {
			continue
		}
		// A flag default must not mask a file or env value
		if !cmd.IsSet(name) {
			continue
		}

		if value := cmd.Value(name); value != nil {
			key := strings.ReplaceAll(name, "--", ".")
			key = strings.ReplaceAll(key, "-", "_")
			values[key] = value
		}
	}

	return values
}

func isConfigFlag(name string) bool {
	for _, prefix := range configFlagPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
