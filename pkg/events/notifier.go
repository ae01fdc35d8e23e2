package events

import "sync"

type subscriber struct {
	fn  Subscriber
	key uint64
}

// Notifier is a simple emitter of loader events.
type Notifier struct {
	subscribersLk sync.RWMutex
	subscribers   []subscriber
	nextKey       uint64
}

// NewNotifier returns a new Notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe adds the given subscriber to the list of subscribers for this Notifier
func (n *Notifier) Subscribe(fn Subscriber) Unsubscribe {
	n.subscribersLk.Lock()
	sub := subscriber{fn, n.nextKey}
	n.nextKey++
	n.subscribers = append(n.subscribers, sub)
	n.subscribersLk.Unlock()
	return n.unsubscribeAt(sub)
}

// unsubscribeAt returns a function that removes an item from n.subscribers.
// Order of the remaining subscribers is preserved.
func (n *Notifier) unsubscribeAt(sub subscriber) Unsubscribe {
	return func() {
		n.subscribersLk.Lock()
		defer n.subscribersLk.Unlock()
		for i, el := range n.subscribers {
			if sub.key == el.key {
				n.subscribers = append(n.subscribers[:i:i], n.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of active subscribers.
func (n *Notifier) Len() int {
	n.subscribersLk.RLock()
	defer n.subscribersLk.RUnlock()
	return len(n.subscribers)
}

// Publish delivers the event to all subscribers in subscription order.
// Subscribers may subscribe or unsubscribe from within the callback.
func (n *Notifier) Publish(evt Event) {
	n.subscribersLk.RLock()
	subs := make([]subscriber, len(n.subscribers))
	copy(subs, n.subscribers)
	n.subscribersLk.RUnlock()
	for _, sub := range subs {
		sub.fn(evt)
	}
}
