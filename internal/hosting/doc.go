// Package hosting is the client for the managed hosting platform.
//
// The platform is a black box behind exactly four calls: resolve or create
// an instance by name, trigger a build, read a build's status, and read an
// instance's endpoint. The deployer never assumes anything beyond this
// contract.
//
// The caller's credential crosses this boundary exactly once, inside
// ResolveOrCreate. Every later call identifies the instance by the opaque
// identifier the platform returned, so the credential's lifetime ends when
// that first call returns. Errors from ResolveOrCreate deliberately omit
// the platform's response body: a misbehaving platform echoing the request
// must not leak a secret into our error chain.
package hosting
