// Package idpsdk is a small Go client for the identity provider's HTTP
// surface: the token, revocation and introspection endpoints plus the
// discovery and health endpoints. It speaks the same wire vocabulary the
// server does (pkg/oauth2x) and is what the e2e suite drives the server
// with.
package idpsdk
