// Package config loads the alert server configuration from YAML.
//
// Load(path) reads the `server:` section, applies defaults, and validates the
// result. Secrets and webhook URLs are never stored in the file: fields ending
// in _env name an environment variable instead, and LoadEnv can populate the
// environment from a .env file first.
//
// Watch(ctx, path, logger, onChange) reloads the file after each change,
// including saves that replace it. The server uses it to register
// descriptors added while it is running; other settings take effect on
// restart.
package config
