package llmbatch

import "os"

// ResolveAPIKey picks the credential for provider. The first non-empty
// environment variable in envVars wins; explicit is the fallback. With neither
// set it returns a ConfigError wrapping ErrMissingAPIKey so construction fails
// fast instead of sending unauthenticated requests.
func ResolveAPIKey(provider, explicit string, envVars ...string) (string, error) {
	for _, name := range envVars {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	if explicit != "" {
		return explicit, nil
	}
	return "", &ConfigError{
		Provider: provider,
		Message:  "set " + envHint(envVars) + " or pass an API key",
		Err:      ErrMissingAPIKey,
	}
}

func envHint(envVars []string) string {
	switch len(envVars) {
	case 0:
		return "an environment credential"
	case 1:
		return envVars[0]
	}
	hint := envVars[0]
	for _, v := range envVars[1:] {
		hint += "/" + v
	}
	return hint
}
