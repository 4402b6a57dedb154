package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Venues hold per-exchange credentials; deep-copy the map before
	// redacting so the original is untouched.
	if cfg.Venues != nil {
		out.Venues = make(map[string]VenueConfig, len(cfg.Venues))
		for id, v := range cfg.Venues {
			redact(&v.ApiKey)
			redact(&v.ApiSecret)
			redact(&v.SecretPassword)
			redact(&v.Passphrase)
			out.Venues[id] = v
		}
	}

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Server
	out.Server = cfg.Server
	redact(&out.Server.APIToken)

	// Notify
	out.Notify = cfg.Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.VenueOrder != nil {
		out.VenueOrder = append([]string(nil), cfg.VenueOrder...)
	}
	if cfg.Arbitrage.Symbols != nil {
		out.Arbitrage.Symbols = append([]string(nil), cfg.Arbitrage.Symbols...)
	}
	if cfg.Feed.Symbols != nil {
		out.Feed.Symbols = append([]string(nil), cfg.Feed.Symbols...)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
