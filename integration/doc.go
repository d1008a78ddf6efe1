// Package integration holds end-to-end tests of the assembled multigrid
// solver on the uniform model hierarchies.
package integration
