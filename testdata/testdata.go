// Package testdata holds the RSA key pair used to sign access tokens in
// tests and in cmd/manualtest. Never use it in a real deployment.
package testdata

import (
	_ "embed"
)

var (
	// PrivateKeyPEM is a PKCS#8 RSA 2048 key, as session.Config expects.
	//go:embed private_key.pem
	PrivateKeyPEM string

	//go:embed public_key.pem
	PublicKeyPEM string
)
