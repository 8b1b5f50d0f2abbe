package usecase

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"bus-booking/internal/data/entity"
	"bus-booking/internal/data/repository"
	"bus-booking/internal/dto/response"
	"bus-booking/internal/event"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for Postgres. A transaction holds one
// store-wide lock, which is coarser than row locks but gives the same
// serial order per trip. Failed transactions restore a snapshot.
type memStore struct {
	mu sync.Mutex

	users    map[uuid.UUID]entity.User
	sessions map[string]entity.Session
	trips    map[uuid.UUID]entity.Trip
	bookings map[uuid.UUID]entity.Booking
	seats    []entity.BookingSeat
	order    []uuid.UUID // booking insertion order

	// failAdjust, when set, is returned by the next AdjustAvailableSeats
	failAdjust error
}

type inTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]entity.User{},
		sessions: map[string]entity.Session{},
		trips:    map[uuid.UUID]entity.Trip{},
		bookings: map[uuid.UUID]entity.Booking{},
	}
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:        memUserRepo{s},
		Session:     memSessionRepo{s},
		Trip:        memTripRepo{s},
		Booking:     memBookingRepo{s},
		BookingSeat: memSeatRepo{s},
		Tx:          memTransactor{s},
	}
}

// locked runs fn under the store lock unless ctx already holds it
func (s *memStore) locked(ctx context.Context, fn func()) {
	if ctx.Value(inTxKey{}) != nil {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

type memSnapshot struct {
	users    map[uuid.UUID]entity.User
	sessions map[string]entity.Session
	trips    map[uuid.UUID]entity.Trip
	bookings map[uuid.UUID]entity.Booking
	seats    []entity.BookingSeat
	order    []uuid.UUID
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		users:    make(map[uuid.UUID]entity.User, len(s.users)),
		sessions: make(map[string]entity.Session, len(s.sessions)),
		trips:    make(map[uuid.UUID]entity.Trip, len(s.trips)),
		bookings: make(map[uuid.UUID]entity.Booking, len(s.bookings)),
		seats:    slices.Clone(s.seats),
		order:    slices.Clone(s.order),
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.sessions {
		snap.sessions[k] = v
	}
	for k, v := range s.trips {
		snap.trips[k] = v
	}
	for k, v := range s.bookings {
		snap.bookings[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.users = snap.users
	s.sessions = snap.sessions
	s.trips = snap.trips
	s.bookings = snap.bookings
	s.seats = snap.seats
	s.order = snap.order
}

// liveSeats counts booked entries per trip
func (s *memStore) liveSeats(tripID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, seat := range s.seats {
		if seat.TripID == tripID && seat.Status == entity.SeatStatusBooked {
			n++
		}
	}
	return n
}

func (s *memStore) trip(id uuid.UUID) entity.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trips[id]
}

// bookingState returns the stored booking and its live seat numbers
func (s *memStore) bookingState(id uuid.UUID) (entity.Booking, []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var live []int
	for _, seat := range s.seats {
		if seat.BookingID == id && seat.Status == entity.SeatStatusBooked {
			live = append(live, seat.SeatNumber)
		}
	}
	slices.Sort(live)
	return s.bookings[id], live
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memStore) addUser(role entity.UserRole) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.users[id] = entity.User{
		Base:     entity.Base{ID: id, CreatedAt: time.Now()},
		Username: "user-" + id.String()[:8],
		Email:    id.String()[:8] + "@example.com",
		Role:     role,
		IsActive: true,
	}
	return id
}

func (s *memStore) addTrip(totalSeats int, fare float64) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.trips[id] = entity.Trip{
		Base:           entity.Base{ID: id, CreatedAt: time.Now()},
		BusName:        "Express",
		Origin:         "Pune",
		Destination:    "Mumbai",
		DepartureTime:  time.Now().Add(24 * time.Hour),
		Fare:           fare,
		TotalSeats:     totalSeats,
		AvailableSeats: totalSeats,
	}
	return id
}

// ==================== TRANSACTOR ====================

type memTransactor struct{ s *memStore }

func (t memTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

func (t memTransactor) WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.WithinTx(ctx, fn)
}

// ==================== USERS & SESSIONS ====================

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.s.locked(ctx, func() { r.s.users[user.ID] = *user })
	return nil
}

func (r memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var out *entity.User
	r.s.locked(ctx, func() {
		if u, ok := r.s.users[id]; ok {
			out = &u
		}
	})
	return out, nil
}

func (r memUserRepo) find(ctx context.Context, match func(entity.User) bool) *entity.User {
	var out *entity.User
	r.s.locked(ctx, func() {
		for _, u := range r.s.users {
			if match(u) {
				out = &u
				return
			}
		}
	})
	return out
}

func (r memUserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.find(ctx, func(u entity.User) bool { return u.Email == email }), nil
}

func (r memUserRepo) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.find(ctx, func(u entity.User) bool { return u.Username == username }), nil
}

func (r memUserRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	u, _ := r.FindByID(ctx, id)
	return u != nil && u.IsActive, nil
}

type memSessionRepo struct{ s *memStore }

func (r memSessionRepo) Create(ctx context.Context, session *entity.Session) error {
	r.s.locked(ctx, func() { r.s.sessions[session.Token.String()] = *session })
	return nil
}

func (r memSessionRepo) FindValidSession(ctx context.Context, token string) (*entity.Session, error) {
	var out *entity.Session
	r.s.locked(ctx, func() {
		if sess, ok := r.s.sessions[token]; ok && sess.RevokedAt == nil && sess.ExpiresAt.After(time.Now()) {
			out = &sess
		}
	})
	return out, nil
}

func (r memSessionRepo) Revoke(ctx context.Context, token string) error {
	r.s.locked(ctx, func() {
		if sess, ok := r.s.sessions[token]; ok {
			now := time.Now()
			sess.RevokedAt = &now
			r.s.sessions[token] = sess
		}
	})
	return nil
}

// ==================== TRIPS ====================

type memTripRepo struct{ s *memStore }

func (r memTripRepo) Create(ctx context.Context, trip *entity.Trip) error {
	r.s.locked(ctx, func() { r.s.trips[trip.ID] = *trip })
	return nil
}

func (r memTripRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Trip, error) {
	var out *entity.Trip
	r.s.locked(ctx, func() {
		if t, ok := r.s.trips[id]; ok {
			out = &t
		}
	})
	return out, nil
}

func (r memTripRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Trip, error) {
	return r.FindByID(ctx, id)
}

func (r memTripRepo) AdjustAvailableSeats(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	var (
		available int
		err       error
	)
	r.s.locked(ctx, func() {
		if r.s.failAdjust != nil {
			err, r.s.failAdjust = r.s.failAdjust, nil
			return
		}
		t, ok := r.s.trips[id]
		next := t.AvailableSeats + delta
		if !ok || next < 0 || next > t.TotalSeats {
			err = repository.ErrCapacityExceeded
			return
		}
		t.AvailableSeats = next
		r.s.trips[id] = t
		available = next
	})
	return available, err
}

// ==================== BOOKINGS ====================

type memBookingRepo struct{ s *memStore }

func (r memBookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	r.s.locked(ctx, func() {
		b := *booking
		b.Seats = nil
		r.s.bookings[b.ID] = b
		r.s.order = append(r.s.order, b.ID)
	})
	return nil
}

func (r memBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	var out *entity.Booking
	r.s.locked(ctx, func() {
		if b, ok := r.s.bookings[id]; ok {
			out = &b
		}
	})
	return out, nil
}

func (r memBookingRepo) FindByIDAndUserIDForUpdate(ctx context.Context, id, userID uuid.UUID) (*entity.Booking, error) {
	b, _ := r.FindByID(ctx, id)
	if b == nil || b.UserID != userID {
		return nil, nil
	}
	return b, nil
}

func (r memBookingRepo) list(ctx context.Context, userID uuid.UUID, activeOnly bool) []*entity.Booking {
	var out []*entity.Booking
	r.s.locked(ctx, func() {
		// newest first
		for i := len(r.s.order) - 1; i >= 0; i-- {
			b, ok := r.s.bookings[r.s.order[i]]
			if !ok || b.UserID != userID {
				continue
			}
			if activeOnly && !r.s.hasLiveSeat(b.ID) {
				continue
			}
			out = append(out, &b)
		}
	})
	return out
}

func (s *memStore) hasLiveSeat(bookingID uuid.UUID) bool {
	for _, seat := range s.seats {
		if seat.BookingID == bookingID && seat.Status == entity.SeatStatusBooked {
			return true
		}
	}
	return false
}

func (r memBookingRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Booking, error) {
	return r.list(ctx, userID, false), nil
}

func (r memBookingRepo) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Booking, error) {
	return r.list(ctx, userID, true), nil
}

func (r memBookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, bookingStatus entity.BookingStatus, paymentStatus entity.PaymentStatus) error {
	var err error
	r.s.locked(ctx, func() {
		b, ok := r.s.bookings[id]
		if !ok {
			err = errors.New("booking not found")
			return
		}
		b.BookingStatus = bookingStatus
		b.PaymentStatus = paymentStatus
		b.UpdatedAt = time.Now()
		r.s.bookings[id] = b
	})
	return err
}

// ==================== BOOKING SEATS ====================

type memSeatRepo struct{ s *memStore }

func (r memSeatRepo) CreateBatch(ctx context.Context, seats []*entity.BookingSeat) error {
	var err error
	r.s.locked(ctx, func() {
		for _, seat := range seats {
			for _, existing := range r.s.seats {
				if existing.TripID == seat.TripID &&
					existing.SeatNumber == seat.SeatNumber &&
					existing.Status == entity.SeatStatusBooked {
					err = repository.ErrSeatTaken
					return
				}
			}
			r.s.seats = append(r.s.seats, *seat)
		}
	})
	return err
}

func (r memSeatRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingSeat, error) {
	var out []*entity.BookingSeat
	r.s.locked(ctx, func() {
		for _, seat := range r.s.seats {
			seat := seat
			if seat.BookingID == bookingID {
				out = append(out, &seat)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

func (r memSeatRepo) FindByBookingIDs(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID][]*entity.BookingSeat, error) {
	out := make(map[uuid.UUID][]*entity.BookingSeat, len(bookingIDs))
	for _, id := range bookingIDs {
		seats, _ := r.FindByBookingID(ctx, id)
		out[id] = seats
	}
	return out, nil
}

func (r memSeatRepo) FindBookedSeatNumbersByTrip(ctx context.Context, tripID uuid.UUID) ([]int, error) {
	var out []int
	r.s.locked(ctx, func() {
		for _, seat := range r.s.seats {
			if seat.TripID == tripID && seat.Status == entity.SeatStatusBooked {
				out = append(out, seat.SeatNumber)
			}
		}
	})
	slices.Sort(out)
	return out, nil
}

func (r memSeatRepo) UpdateStatus(ctx context.Context, bookingID uuid.UUID, seatNumbers []int, status entity.SeatStatus) (int64, error) {
	var n int64
	r.s.locked(ctx, func() {
		for i := range r.s.seats {
			seat := &r.s.seats[i]
			if seat.BookingID == bookingID && slices.Contains(seatNumbers, seat.SeatNumber) && seat.Status != status {
				seat.Status = status
				seat.UpdatedAt = time.Now()
				n++
			}
		}
	})
	return n, nil
}

// ==================== CACHE & EVENTS ====================

type memCache struct {
	mu          sync.Mutex
	data        map[string]any
	generations map[string]int64
	deleted     []string

	// afterStamp, when set, runs once right after the next Stamp
	afterStamp func()
}

func newMemCache() *memCache {
	return &memCache{data: map[string]any{}, generations: map[string]int64{}}
}

func (c *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case *[]response.BookingResponse:
		*d = v.([]response.BookingResponse)
	case *response.TripResponse:
		*d = v.(response.TripResponse)
	default:
		return false, nil
	}
	return true, nil
}

func (c *memCache) Stamp(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	stamp := c.generations[key]
	hook := c.afterStamp
	c.afterStamp = nil
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return stamp, nil
}

func (c *memCache) SetIfUnchanged(_ context.Context, key string, value any, stamp int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[key] != stamp {
		return false, nil
	}
	c.data[key] = value
	return true, nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.generations[k]++
	}
	c.deleted = append(c.deleted, keys...)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]event.Type, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
