// Package installer materializes plugin artifacts into disposable,
// attempt-scoped working directories so the validator can run them.
//
// Two artifact paths exist. Package references install through npm into a
// private prefix; container references pull through the Docker daemon and
// run with an attached stdio pipe. Both produce an api.Installation whose
// Command/Args/Env launch the plugin and whose Cleanup removes every trace
// of the attempt. Cleanup is idempotent and never fails the caller.
//
// The child environment is constructed from scratch: PATH to find the
// runtime, HOME pointed into the attempt directory. Nothing else from the
// gateway's environment reaches untrusted plugin code.
package installer
