package fan

import (
	"context"
	"sync"
)

// notifier versions each attribute and wakes blocked readers when the
// version moves. Readers that fall behind see the latest version only.
type notifier struct {
	mu     sync.Mutex
	topics map[Attribute]*topic
}

type topic struct {
	version uint64
	changed chan struct{}
}

func newNotifier() *notifier {
	n := &notifier{topics: make(map[Attribute]*topic)}
	for _, a := range Attributes() {
		n.topics[a] = &topic{changed: make(chan struct{})}
	}

	return n
}

func (n *notifier) Notify(a Attribute) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t, ok := n.topics[a]
	if !ok {
		return
	}
	t.version++
	close(t.changed)
	t.changed = make(chan struct{})
}

func (n *notifier) Version(a Attribute) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.topics[a]; ok {
		return t.version
	}

	return 0
}

// Wait returns as soon as the version of a differs from since.
func (n *notifier) Wait(ctx context.Context, a Attribute, since uint64) (uint64, error) {
	for {
		n.mu.Lock()
		t, ok := n.topics[a]
		if !ok {
			n.mu.Unlock()
			return 0, errUnknownAttribute(string(a))
		}
		version, changed := t.version, t.changed
		n.mu.Unlock()

		if version != since {
			return version, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return since, ctx.Err()
		}
	}
}
