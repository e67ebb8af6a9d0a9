// Package bus is a small in-process pub/sub broker with retained messages
// and MQTT-style topic wildcards: "+" matches one segment, a trailing "#"
// matches any remainder.
package bus

import (
	"strings"
	"sync"
)

// Topic is a sequence of path segments, e.g. {"motor","m0","value"}.
type Topic []string

// T builds a topic from its segments.
func T(segments ...string) Topic { return Topic(segments) }

func (t Topic) String() string { return strings.Join(t, "/") }

// Last returns the final segment, or "" for an empty topic.
func (t Topic) Last() string {
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	pattern Topic
	ch      chan *Message
	conn    *Connection
}

func (s *Subscription) Pattern() Topic           { return s.pattern }
func (s *Subscription) Channel() <-chan *Message { return s.ch }

// node is one trie level. Wildcard children are kept separately from
// literal ones so publish can fan out without scanning.
type node struct {
	children map[string]*node
	plus     *node // "+" child
	hashSubs []*Subscription
	subs     []*Subscription
	retained *Message
}

type Bus struct {
	mu   sync.RWMutex
	root *node
	qLen int
}

// NewBus creates a bus whose subscription queues hold queueLen messages.
// A full queue drops the oldest message, never the publisher.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{root: &node{}, qLen: queueLen}
}

func (b *Bus) subscribe(sub *Subscription) {
	b.mu.Lock()
	n := b.root
	for i, seg := range sub.pattern {
		if seg == "#" && i == len(sub.pattern)-1 {
			n.hashSubs = append(n.hashSubs, sub)
			b.mu.Unlock()
			// Retained fan-out below the attachment point.
			b.deliverRetainedUnder(n, sub)
			return
		}
		var child *node
		if seg == "+" {
			if n.plus == nil {
				n.plus = &node{}
			}
			child = n.plus
		} else {
			if n.children == nil {
				n.children = make(map[string]*node)
			}
			child = n.children[seg]
			if child == nil {
				child = &node{}
				n.children[seg] = child
			}
		}
		n = child
	}
	n.subs = append(n.subs, sub)
	b.mu.Unlock()

	// Exact subscriptions see the retained message for their topic.
	b.mu.RLock()
	if m := b.lookupRetained(sub.pattern); m != nil {
		push(sub, m)
	}
	b.mu.RUnlock()
}

// lookupRetained resolves the retained message at an exact topic, if the
// pattern is wildcard-free. Caller holds at least a read lock.
func (b *Bus) lookupRetained(topic Topic) *Message {
	n := b.root
	for _, seg := range topic {
		if seg == "+" || seg == "#" {
			return nil
		}
		if n.children == nil {
			return nil
		}
		n = n.children[seg]
		if n == nil {
			return nil
		}
	}
	return n.retained
}

// deliverRetainedUnder replays every retained message stored at or below n
// to a freshly attached "#" subscriber.
func (b *Bus) deliverRetainedUnder(n *node, sub *Subscription) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var walk func(*node)
	walk = func(cur *node) {
		if cur.retained != nil {
			push(sub, cur.retained)
		}
		for _, c := range cur.children {
			walk(c)
		}
		if cur.plus != nil {
			walk(cur.plus)
		}
	}
	walk(n)
}

// Publish delivers msg to every matching subscriber and, when Retained,
// stores it at the topic (a nil payload clears the slot).
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.match(b.root, msg.Topic, msg)

	if !msg.Retained {
		return
	}
	n := b.root
	for _, seg := range msg.Topic {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child := n.children[seg]
		if child == nil {
			child = &node{}
			n.children[seg] = child
		}
		n = child
	}
	if msg.Payload == nil {
		n.retained = nil
	} else {
		n.retained = msg
	}
}

func (b *Bus) match(n *node, rest Topic, msg *Message) {
	for _, sub := range n.hashSubs {
		push(sub, msg)
	}
	if len(rest) == 0 {
		for _, sub := range n.subs {
			push(sub, msg)
		}
		return
	}
	if child := n.children[rest[0]]; child != nil {
		b.match(child, rest[1:], msg)
	}
	if n.plus != nil {
		b.match(n.plus, rest[1:], msg)
	}
}

func push(sub *Subscription, msg *Message) {
	select {
	case sub.ch <- msg:
	default:
		// Drop oldest, keep newest.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	pattern := sub.pattern
	var parents []*node
	for i, seg := range pattern {
		if seg == "#" && i == len(pattern)-1 {
			n.hashSubs = remove(n.hashSubs, sub)
			return
		}
		parents = append(parents, n)
		if seg == "+" {
			n = n.plus
		} else {
			n = n.children[seg]
		}
		if n == nil {
			return
		}
	}
	n.subs = remove(n.subs, sub)

	// Prune empty literal branches.
	for i := len(pattern) - 1; i >= 0; i-- {
		parent := parents[i]
		seg := pattern[i]
		if seg == "+" || seg == "#" {
			break
		}
		child := parent.children[seg]
		if child != nil && len(child.subs) == 0 && len(child.hashSubs) == 0 &&
			len(child.children) == 0 && child.plus == nil && child.retained == nil {
			delete(parent.children, seg)
		} else {
			break
		}
	}
}

func remove(subs []*Subscription, sub *Subscription) []*Subscription {
	for i, s := range subs {
		if s == sub {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}

// Connection groups subscriptions so a client can tear them down together.
type Connection struct {
	bus  *Bus
	mu   sync.Mutex
	subs []*Subscription
	id   string
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(pattern Topic) *Subscription {
	sub := &Subscription{pattern: pattern, ch: make(chan *Message, c.bus.qLen), conn: c}
	c.bus.subscribe(sub)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

func (c *Connection) Unsubscribe(sub *Subscription) {
	c.bus.unsubscribe(sub)
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	close(sub.ch)
}

// Disconnect closes every subscription owned by the connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}
