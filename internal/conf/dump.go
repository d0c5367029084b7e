package conf

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

// Dump renders the effective settings as YAML with secrets masked.
func Dump(settings *Settings) ([]byte, error) {
	masked := *settings
	masked.Database.MySQL.Password = mask(masked.Database.MySQL.Password)
	masked.Drive.ClientSecret = mask(masked.Drive.ClientSecret)
	masked.Sentry.DSN = mask(masked.Sentry.DSN)
	masked.Notify.URLs = make([]string, len(settings.Notify.URLs))
	for i, u := range settings.Notify.URLs {
		masked.Notify.URLs[i] = mask(u)
	}

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings: %w", err)
	}
	return out, nil
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return redacted
}
