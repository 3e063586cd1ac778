package docstore

import "sync"

// Slot holds at most one active subscription.
type Slot struct {
	mu  sync.Mutex
	sub Subscription
}

// Replace closes the held subscription, if any, and then attaches a new one.
// When attach fails the slot is left empty.
func (s *Slot) Replace(attach func() (Subscription, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}

	sub, err := attach()
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

// Close releases the held subscription.
func (s *Slot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
}

func (s *Slot) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub != nil
}
