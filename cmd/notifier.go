package main

import (
	"context"
	"sync"

	"kilnbazaar/service"
)

// lateNotifier forwards to a notifier that is only known after the services
// were built. Until then messages are dropped.
type lateNotifier struct {
	mu     sync.RWMutex
	target service.Notifier
}

func (n *lateNotifier) set(t service.Notifier) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = t
}

func (n *lateNotifier) Notify(ctx context.Context, chatID int64, text string) error {
	n.mu.RLock()
	t := n.target
	n.mu.RUnlock()
	if t == nil {
		return nil
	}
	return t.Notify(ctx, chatID, text)
}
