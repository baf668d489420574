// Package ssh provides an SSH client for executing commands on remote servers.
//
// It is used to harden freshly provisioned fleet instances and to install
// service units on them. The client supports key-based authentication,
// connect retry while an instance finishes booting, optional sudo
// wrapping for non-root users, and file upload over stdin.
package ssh
