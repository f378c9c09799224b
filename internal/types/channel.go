package types

import "net/http"

// Channel defines the interface for an incoming webhook channel.
type Channel interface {
	Name() string
	ParseRequest(r *http.Request) (*Delivery, error)
}
