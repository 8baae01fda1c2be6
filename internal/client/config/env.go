package config

import (
	"github.com/caarlos0/env/v6"
	"github.com/dmitrijs2005/docvault/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv loads the dotenv file into the process environment (variables
// already set win) and overlays DOCVAULT_* variables onto cfg.
// Unset variables leave the current values alone. Malformed values panic,
// like malformed JSON does.
func parseEnv(cfg *Config, args []string) {
	if file := flagx.EnvFileFlag(args); file != "" {
		if err := godotenv.Load(file); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
