// Package domain defines the types and ports of the support IP listing flow
package domain

import "context"

// ServerDetail is the operator-facing identity of a dedicated server
type ServerDetail struct {
	Name        string
	DisplayName string
}

// Server is a worker host with its routed addresses split by family
type Server struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	IPv4        []string `json:"ipv4"`
	IPv6        []string `json:"ipv6"`
}

// StaticIPs are the operator-maintained addresses that front the workers
// and never change with the inventory
type StaticIPs struct {
	IPv4 []string `json:"ipv4"`
	IPv6 []string `json:"ipv6"`
}

// HostingPort is the slice of the hosting provider API the flow needs
type HostingPort interface {
	ListServers(ctx context.Context) ([]string, error)
	ServerDetail(ctx context.Context, name string) (ServerDetail, error)
	// ServerIPs returns the routed address blocks of one server, both families
	ServerIPs(ctx context.Context, name string) ([]string, error)
}

// MessengerPort is the slice of the chat client the flow needs
type MessengerPort interface {
	PostMessage(ctx context.Context, channel, text string) (string, string, error)
}
