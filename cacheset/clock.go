package cacheset

import (
	"fmt"

	"go.uber.org/zap"
)

// evictLocked runs the CLOCK hand until it finds an unreferenced entry and
// removes it. Referenced entries lose their bit and the hand moves past
// them, so the scan ends within ring.len()+1 steps.
func (s *CacheSet) evictLocked(st *state) error {
	n := st.ring.len()
	if n == 0 {
		err := fmt.Errorf("%w: ring is empty but %d entries are resident", ErrEvictionFailure, st.count)
		s.log.Error("index and ring out of sync", zap.Int("resident", st.count), zap.Error(err))
		return err
	}

	for step := 0; step <= n; step++ {
		id := st.ring.hand()
		e := st.slots.at(id)
		if e.referenced {
			e.referenced = false
			st.ring.advance()
			continue
		}

		k, v := s.removeLocked(st, id)
		s.evicts.Add(1)
		s.opt.Metrics.Evict(EvictClock)
		if ce := s.log.Check(zap.DebugLevel, "evicted"); ce != nil {
			ce.Write(zap.ByteString("key", k), zap.Int("scanned", step+1))
		}
		if cb := s.opt.OnEvict; cb != nil {
			cb(k, v, EvictClock)
		}
		return nil
	}

	err := fmt.Errorf("%w: no victim after %d steps over %d entries", ErrEvictionFailure, n+1, n)
	s.log.Error("clock scan did not terminate", zap.Int("resident", st.count), zap.Error(err))
	return err
}
