package cart

import (
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds the cart aggregate in memory. It is created once by the
// composition root and shared by every consumer; lines are only mutated
// through its methods.
type Store struct {
	mu      sync.RWMutex
	lines   []domain.CartLine // insertion order, at most one line per product
	version uint64            // bumped by every mutation that changed lines

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(domain.Cart)

	// deliverMu serialises callbacks; delivered is the newest version sent.
	deliverMu sync.Mutex
	delivered uint64

	newLineID func() string
}

// NewStore creates an empty cart store
func NewStore() *Store {
	return &Store{
		subs:      make(map[int]func(domain.Cart)),
		newLineID: uuid.NewString,
	}
}

// Add puts a product into the cart. A product already in the cart has its
// quantity bumped by one; name and price stay as they were on first add.
func (s *Store) Add(p domain.Product) {
	s.mu.Lock()
	if i := s.indexOf(p.ID); i >= 0 {
		s.lines[i].Qty++
	} else {
		s.lines = append(s.lines, domain.CartLine{
			LineID:    s.newLineID(),
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Qty:       1,
		})
	}
	snap, version := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap, version)
}

// Increase bumps the quantity of the product's line by one.
// Does nothing if the product is not in the cart.
func (s *Store) Increase(productID int64) {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.lines[i].Qty++
	snap, version := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap, version)
}

// Decrease lowers the quantity of the product's line by one. A line with a
// quantity of one is removed instead of reaching zero.
func (s *Store) Decrease(productID int64) {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	if s.lines[i].Qty > 1 {
		s.lines[i].Qty--
	} else {
		s.removeAt(i)
	}
	snap, version := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap, version)
}

// Remove drops the product's line regardless of its quantity.
func (s *Store) Remove(productID int64) {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.removeAt(i)
	snap, version := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap, version)
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	if len(s.lines) == 0 {
		s.mu.Unlock()
		return
	}
	s.lines = nil
	snap, version := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap, version)
}

// TotalCount returns the sum of quantities over all lines.
func (s *Store) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalCount(s.lines)
}

// TotalPrice returns the sum of qty*price over all lines.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalPrice(s.lines)
}

// Snapshot returns a copy of the cart lines together with their totals.
func (s *Store) Snapshot() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every mutation that
// changed the cart. Callbacks run one at a time in mutation order; a
// snapshot overtaken by a newer one is skipped. fn must not mutate the
// store. The returned func unregisters it.
func (s *Store) Subscribe(fn func(domain.Cart)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(snap domain.Cart, version uint64) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version

	s.subMu.Lock()
	fns := make([]func(domain.Cart), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) indexOf(productID int64) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(i int) {
	s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
}

func (s *Store) changedLocked() (domain.Cart, uint64) {
	s.version++
	return s.snapshotLocked(), s.version
}

func (s *Store) snapshotLocked() domain.Cart {
	lines := make([]domain.CartLine, len(s.lines))
	copy(lines, s.lines)
	return domain.Cart{
		Lines:      lines,
		TotalCount: totalCount(lines),
		TotalPrice: totalPrice(lines),
	}
}

func totalCount(lines []domain.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Qty
	}
	return n
}

func totalPrice(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}
