// Package models contains the data structures used throughout duniter-node-manager.
package models

import "time"

// AppConfig holds the complete configuration for a controller run.
type AppConfig struct {
	Remote RemoteConfig
	Node   NodeConfig
}

// RemoteConfig holds how to reach and authenticate against the managed host.
type RemoteConfig struct {
	Address        string        // user@ip:port
	Credential     string        // password or agent identity token
	ConnectTimeout time.Duration // TCP connect bound, handshake and commands are unbounded
}

// NodeConfig holds settings of the managed Duniter node.
type NodeConfig struct {
	Type string // systemd unit suffix, e.g. "mirror" for duniter-mirror.service
}
