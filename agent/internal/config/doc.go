// Package config loads and watches the forwarder configuration file.
//
//   - Config{Agent}: the `agent:` section of config.yaml
//   - AgentConfig: server_endpoint, buffer_size, send_timeout, server_auth, log
//   - AuthConfig: mode (mtls|apikey|none), cert/key/ca files, header, key_env;
//     Key() resolves the API key from the environment
//
// Load(path) applies defaults (1000 buffer, 10s send timeout, x-api-key
// header, info logging) and validates. Watch(ctx, path, logger, onChange)
// reloads through pkg/filewatch, which also sees saves that replace the
// file. The forwarder
// uses it to change its log level without a restart.
package config
