// Package sse provides Server-Sent Events client management for live feed updates.
package sse

import "sync"

type Client struct {
	Msg chan string
}

type Clients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewClients() *Clients {
	return &Clients{
		clients: make(map[*Client]bool),
	}
}

func (s *Clients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *Clients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, client)
	close(client.Msg)
}

// Broadcast notifies every connected feed viewer. Slow clients are skipped
// rather than blocking the sender.
func (s *Clients) Broadcast(msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		select {
		case client.Msg <- msg:
		default:
		}
	}
}
