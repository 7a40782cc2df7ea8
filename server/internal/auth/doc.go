// Package auth guards the gRPC ingestion endpoint with API keys.
//
// ParseKeys turns the configured value (one key, or several separated by
// commas while a key is being rotated) into a KeySet. APIKeyInterceptor
// rejects calls whose key header matches none of them with
// codes.Unauthenticated. Auth modes other than "apikey", or an empty key
// set, disable the check.
package auth
