package config

const maskValue = "***"

// Redacted returns a copy of cfg safe for logging: credential fields are
// masked and shared slices/maps are cloned so the copy cannot be used to
// mutate the original.
func Redacted(cfg *Config) Config {
	out := *cfg

	for _, field := range []*string{
		&out.Postgres.DSN,
		&out.Postgres.Password,
		&out.Redis.Password,
		&out.S3.AccessKey,
		&out.S3.SecretKey,
		&out.Server.AdminKey,
		&out.Notify.TelegramToken,
		&out.Notify.DiscordWebhookURL,
	} {
		if *field != "" {
			*field = maskValue
		}
	}

	out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	if cfg.Bridge.Endpoints != nil {
		out.Bridge.Endpoints = make(map[string]string, len(cfg.Bridge.Endpoints))
		for chain, url := range cfg.Bridge.Endpoints {
			out.Bridge.Endpoints[chain] = url
		}
	}

	return out
}
