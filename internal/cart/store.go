// Package cart implements the dual-representation cart: a guest snapshot in
// a session store while anonymous, the authoritative remote cart once
// authenticated, and the reconciliation protocol that merges the former into
// the latter on login.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vastramart/cartengine/internal/domain"
	"github.com/vastramart/cartengine/internal/port"
	"github.com/vastramart/cartengine/internal/pricing"
	"go.uber.org/zap"
)

type Mode string

const (
	Anonymous     Mode = "anonymous"
	Authenticated Mode = "authenticated"
)

// MinQuantity resolves the MOQ floor for a product. Quantity updates are
// validated against this floor before any network call; it is the single
// enforcement point shared with the configurator.
type MinQuantity func(productID uuid.UUID) int

// Store dispatches every cart operation to the guest store or the remote
// cart depending on the current mode. Login and logout are explicit methods;
// there is no ambient auth broadcast.
type Store struct {
	guest  port.GuestStore
	remote port.RemoteCart
	minQty MinQuantity
	logger *zap.Logger

	mu        sync.Mutex
	mode      Mode
	ownerID   string
	lastKnown domain.CartSnapshot

	// one outstanding mutation per line; entries are evicted once the last
	// holder releases
	lineLocks map[string]*lineLock

	// whole-cart mutations (clear, reconciliation) do not interleave
	cartMu sync.Mutex
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithMinQuantity(fn MinQuantity) Option {
	return func(s *Store) { s.minQty = fn }
}

func NewStore(guest port.GuestStore, remote port.RemoteCart, opts ...Option) (*Store, error) {
	if guest == nil {
		return nil, fmt.Errorf("guest store is nil")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote cart is nil")
	}

	s := &Store{
		guest:     guest,
		remote:    remote,
		minQty:    func(uuid.UUID) int { return 1 },
		logger:    zap.NewNop(),
		mode:      Anonymous,
		lineLocks: make(map[string]*lineLock),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

type lineLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Store) lockLine(key string) *lineLock {
	s.mu.Lock()
	lock, ok := s.lineLocks[key]
	if !ok {
		lock = &lineLock{}
		s.lineLocks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *Store) unlockLine(key string, lock *lineLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.lineLocks, key)
	}
	s.mu.Unlock()
}

// mergeLockKey serializes authenticated adds by triple rather than by the
// throwaway client-side line id.
func mergeLockKey(key domain.MergeKey) string {
	return key.ProductID.String() + "/" + key.GradeID.String() + "/" + key.ColorID.String()
}

// Snapshot returns the current cart. While authenticated a failed remote
// read degrades to the last-known-good snapshot instead of surfacing
// emptiness.
func (s *Store) Snapshot(ctx context.Context) (domain.CartSnapshot, error) {
	s.mu.Lock()
	mode, ownerID := s.mode, s.ownerID
	s.mu.Unlock()

	if mode == Anonymous {
		lines, err := s.guest.Load(ctx)
		if err != nil {
			return domain.CartSnapshot{}, fmt.Errorf("guest.Load: %w", err)
		}
		return domain.CartSnapshot{Lines: lines}, nil
	}

	snapshot, err := s.remote.GetCart(ctx, ownerID)
	if err != nil {
		s.mu.Lock()
		fallback := s.lastKnown.Clone()
		s.mu.Unlock()

		s.logger.Warn("remote cart read failed, serving last-known snapshot",
			zap.String("owner_id", ownerID), zap.Error(err))
		return fallback, nil
	}

	s.mu.Lock()
	s.lastKnown = snapshot.Clone()
	s.mu.Unlock()

	return snapshot, nil
}

// Add appends a line, merging by (productID, gradeID, colorID) so a
// duplicate triple sums quantities instead of creating a second row. The
// returned line is canonical: server-issued while authenticated.
func (s *Store) Add(ctx context.Context, line domain.LineItem) (domain.LineItem, error) {
	if line.Quantity < 1 {
		return domain.LineItem{}, fmt.Errorf("quantity[%d] must be positive", line.Quantity)
	}
	if floor := s.minQty(line.ProductID); line.Quantity < floor {
		return domain.LineItem{}, fmt.Errorf("quantity[%d] below minimum[%d]", line.Quantity, floor)
	}

	s.mu.Lock()
	mode, ownerID := s.mode, s.ownerID
	s.mu.Unlock()

	if mode == Anonymous {
		return s.addLocal(ctx, line)
	}

	key := mergeLockKey(line.MergeKey())
	lock := s.lockLine(key)
	defer s.unlockLine(key, lock)

	prev := s.captureLastKnown()
	s.applyOptimisticUpsert(line)

	canonical, err := s.remote.UpsertLine(ctx, ownerID, line)
	if err != nil {
		s.restoreLastKnown(prev)
		return domain.LineItem{}, fmt.Errorf("remote.UpsertLine: %w", err)
	}

	s.reconcileLine(canonical)
	return canonical, nil
}

func (s *Store) addLocal(ctx context.Context, line domain.LineItem) (domain.LineItem, error) {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	lines, err := s.guest.Load(ctx)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("guest.Load: %w", err)
	}

	if line.ID == "" {
		line.ID = domain.NewClientLineID()
	}

	snapshot := domain.CartSnapshot{Lines: lines}
	if i := snapshot.FindByKey(line.MergeKey()); i >= 0 {
		snapshot.Lines[i].Quantity += line.Quantity
		line = snapshot.Lines[i]
	} else {
		snapshot.Lines = append(snapshot.Lines, line)
	}

	if err := s.guest.Save(ctx, snapshot.Lines); err != nil {
		return domain.LineItem{}, fmt.Errorf("guest.Save: %w", err)
	}

	return line, nil
}

func (s *Store) updateLocal(ctx context.Context, lineID string, quantity int) (domain.LineItem, error) {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	lines, err := s.guest.Load(ctx)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("guest.Load: %w", err)
	}

	snapshot := domain.CartSnapshot{Lines: lines}
	i := snapshot.FindLine(lineID)
	if i < 0 {
		return domain.LineItem{}, fmt.Errorf("line[%s] not in cart", lineID)
	}

	if floor := s.minQty(snapshot.Lines[i].ProductID); quantity < floor {
		return domain.LineItem{}, fmt.Errorf("quantity[%d] below minimum[%d]", quantity, floor)
	}

	snapshot.Lines[i].Quantity = quantity
	if err := s.guest.Save(ctx, snapshot.Lines); err != nil {
		return domain.LineItem{}, fmt.Errorf("guest.Save: %w", err)
	}

	return snapshot.Lines[i], nil
}

// UpdateQuantity overwrites a line's quantity. The MOQ floor is validated
// before any network call.
func (s *Store) UpdateQuantity(ctx context.Context, lineID string, quantity int) (domain.LineItem, error) {
	if quantity < 1 {
		return domain.LineItem{}, fmt.Errorf("quantity[%d] must be positive", quantity)
	}

	s.mu.Lock()
	mode, ownerID := s.mode, s.ownerID
	s.mu.Unlock()

	if mode == Anonymous {
		return s.updateLocal(ctx, lineID, quantity)
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return domain.LineItem{}, err
	}

	i := snapshot.FindLine(lineID)
	if i < 0 {
		return domain.LineItem{}, fmt.Errorf("line[%s] not in cart", lineID)
	}

	if floor := s.minQty(snapshot.Lines[i].ProductID); quantity < floor {
		return domain.LineItem{}, fmt.Errorf("quantity[%d] below minimum[%d]", quantity, floor)
	}

	lock := s.lockLine(lineID)
	defer s.unlockLine(lineID, lock)

	prev := s.captureLastKnown()

	optimistic := snapshot.Lines[i]
	optimistic.Quantity = quantity
	s.applyOptimisticUpsert(optimistic)

	canonical, err := s.remote.UpdateQuantity(ctx, ownerID, lineID, quantity)
	if err != nil {
		s.restoreLastKnown(prev)
		return domain.LineItem{}, fmt.Errorf("remote.UpdateQuantity: %w", err)
	}

	s.reconcileLine(canonical)
	return canonical, nil
}

// Remove drops a line from the cart.
func (s *Store) Remove(ctx context.Context, lineID string) error {
	s.mu.Lock()
	mode, ownerID := s.mode, s.ownerID
	s.mu.Unlock()

	if mode == Anonymous {
		s.cartMu.Lock()
		defer s.cartMu.Unlock()

		lines, err := s.guest.Load(ctx)
		if err != nil {
			return fmt.Errorf("guest.Load: %w", err)
		}

		snapshot := domain.CartSnapshot{Lines: lines}
		i := snapshot.FindLine(lineID)
		if i < 0 {
			return fmt.Errorf("line[%s] not in cart", lineID)
		}

		snapshot.Lines = append(snapshot.Lines[:i], snapshot.Lines[i+1:]...)
		if err := s.guest.Save(ctx, snapshot.Lines); err != nil {
			return fmt.Errorf("guest.Save: %w", err)
		}
		return nil
	}

	lock := s.lockLine(lineID)
	defer s.unlockLine(lineID, lock)

	prev := s.captureLastKnown()
	s.applyOptimisticRemove(lineID)

	if _, err := s.remote.RemoveLine(ctx, ownerID, lineID); err != nil {
		s.restoreLastKnown(prev)
		return fmt.Errorf("remote.RemoveLine: %w", err)
	}

	return nil
}

// Clear empties the cart in its current representation.
func (s *Store) Clear(ctx context.Context) error {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	s.mu.Lock()
	mode, ownerID := s.mode, s.ownerID
	s.mu.Unlock()

	if mode == Anonymous {
		if err := s.guest.Clear(ctx); err != nil {
			return fmt.Errorf("guest.Clear: %w", err)
		}
		return nil
	}

	prev := s.captureLastKnown()
	s.restoreLastKnown(domain.CartSnapshot{OwnerID: ownerID})

	if err := s.remote.Clear(ctx, ownerID); err != nil {
		s.restoreLastKnown(prev)
		return fmt.Errorf("remote.Clear: %w", err)
	}

	return nil
}

// ItemCount is derived live from the current snapshot, never from a
// separately-maintained counter.
func (s *Store) ItemCount(ctx context.Context) (int, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return snapshot.ItemCount(), nil
}

// Totals prices the current snapshot with the default split rates.
func (s *Store) Totals(ctx context.Context) (domain.TaxBreakdown, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return domain.TaxBreakdown{}, err
	}
	return pricing.ComputeDefault(snapshot.Lines), nil
}

// Login switches the store to the authenticated representation and merges
// the guest snapshot into the remote cart. The guest snapshot is captured
// and cleared before replay begins, so a duplicate trigger finds nothing to
// replay and cannot double the cart. Replay is at-least-once and
// non-transactional: each line failure is logged and skipped.
func (s *Store) Login(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	s.mu.Lock()
	if s.mode == Authenticated {
		s.mu.Unlock()
		return fmt.Errorf("already authenticated")
	}
	s.mode = Authenticated
	s.ownerID = ownerID
	s.mu.Unlock()

	local, err := s.guest.Load(ctx)
	if err != nil {
		s.logger.Warn("guest snapshot unreadable, skipping merge",
			zap.String("owner_id", ownerID), zap.Error(err))
		local = nil
	}

	if len(local) > 0 {
		if err := s.guest.Clear(ctx); err != nil {
			s.logger.Warn("guest snapshot clear failed", zap.Error(err))
		}

		for _, line := range local {
			if _, err := s.remote.UpsertLine(ctx, ownerID, line); err != nil {
				s.logger.Warn("reconciliation: line merge failed, skipping",
					zap.String("owner_id", ownerID),
					zap.String("line_id", line.ID),
					zap.Error(err))
			}
		}
	}

	snapshot, err := s.remote.GetCart(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("remote.GetCart: %w", err)
	}

	s.mu.Lock()
	s.lastKnown = snapshot.Clone()
	s.mu.Unlock()

	return nil
}

// Logout drops the remote cart reference; nothing is copied back into the
// guest store, which starts empty for the next guest context.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = Anonymous
	s.ownerID = ""
	s.lastKnown = domain.CartSnapshot{}
	s.lineLocks = make(map[string]*lineLock)
}

func (s *Store) captureLastKnown() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastKnown.Clone()
}

func (s *Store) restoreLastKnown(snapshot domain.CartSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKnown = snapshot
}

func (s *Store) applyOptimisticUpsert(line domain.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.lastKnown.FindLine(line.ID); i >= 0 {
		s.lastKnown.Lines[i] = line
		return
	}
	if i := s.lastKnown.FindByKey(line.MergeKey()); i >= 0 {
		s.lastKnown.Lines[i].Quantity += line.Quantity
		return
	}
	s.lastKnown.Lines = append(s.lastKnown.Lines, line)
}

func (s *Store) applyOptimisticRemove(lineID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.lastKnown.FindLine(lineID); i >= 0 {
		s.lastKnown.Lines = append(s.lastKnown.Lines[:i], s.lastKnown.Lines[i+1:]...)
	}
}

// reconcileLine replaces the optimistic entry with the server's canonical
// line; the server decides id and price on every write.
func (s *Store) reconcileLine(canonical domain.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.lastKnown.FindByKey(canonical.MergeKey()); i >= 0 {
		s.lastKnown.Lines[i] = canonical
		return
	}
	s.lastKnown.Lines = append(s.lastKnown.Lines, canonical)
}
