package deliveries

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/artmarket-backend/pkg/db"
	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox"
)

var testSchema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		role TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE artist_profiles (
		artist_id INTEGER PRIMARY KEY,
		street TEXT,
		city TEXT,
		state TEXT,
		country TEXT,
		zip TEXT
	)`,
	`CREATE TABLE artworks (
		id INTEGER PRIMARY KEY,
		artist_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		dimensions TEXT,
		style TEXT,
		price NUMERIC
	)`,
	`CREATE TABLE artwork_orders (
		id INTEGER PRIMARY KEY,
		buyer_id INTEGER NOT NULL,
		shipping_address TEXT,
		total_amount NUMERIC,
		delivery_status TEXT DEFAULT 'pending',
		shipping_fee NUMERIC,
		assigned_partner_id INTEGER,
		order_date DATETIME,
		accepted_at DATETIME,
		out_for_delivery_at DATETIME,
		delivered_at DATETIME
	)`,
	`CREATE TABLE artwork_order_items (
		id INTEGER PRIMARY KEY,
		order_id INTEGER NOT NULL,
		artwork_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		unit_price NUMERIC
	)`,
	`CREATE TABLE commission_requests (
		id INTEGER PRIMARY KEY,
		buyer_id INTEGER NOT NULL,
		artist_id INTEGER NOT NULL,
		title TEXT,
		artwork_type TEXT,
		dimensions TEXT,
		style TEXT,
		urgency TEXT,
		deadline DATETIME,
		budget TEXT,
		shipping_address TEXT,
		delivery_status TEXT DEFAULT 'pending',
		shipping_fee NUMERIC,
		assigned_partner_id INTEGER,
		submitted_at DATETIME,
		accepted_at DATETIME,
		out_for_delivery_at DATETIME,
		delivered_at DATETIME
	)`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deliveries.db")
	conn, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range testSchema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func ts(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

type fixture struct {
	t  *testing.T
	db *gorm.DB
}

func (f fixture) user(id int64, name string, role enums.UserRole) {
	f.t.Helper()
	require.NoError(f.t, f.db.Exec(
		"INSERT INTO users (id, name, email, phone, role) VALUES (?, ?, ?, ?, ?)",
		id, name, name+"@example.com", "555-0100", string(role),
	).Error)
}

func (f fixture) profile(artistID int64, city string) {
	f.t.Helper()
	require.NoError(f.t, f.db.Exec(
		"INSERT INTO artist_profiles (artist_id, street, city, state, country, zip) VALUES (?, ?, ?, ?, ?, ?)",
		artistID, "12 Studio Lane", city, "MH", "India", "400001",
	).Error)
}

func (f fixture) artwork(id, artistID int64, title string) {
	f.t.Helper()
	require.NoError(f.t, f.db.Exec(
		"INSERT INTO artworks (id, artist_id, title, dimensions, style, price) VALUES (?, ?, ?, ?, ?, ?)",
		id, artistID, title, "24x36", "Oil", "800",
	).Error)
}

// order inserts an artwork order. A nil status stores NULL.
func (f fixture) order(id, buyerID int64, total string, status *string, orderDate *time.Time, artworkIDs ...int64) {
	f.t.Helper()
	require.NoError(f.t, f.db.Exec(
		"INSERT INTO artwork_orders (id, buyer_id, shipping_address, total_amount, delivery_status, order_date) VALUES (?, ?, ?, ?, ?, ?)",
		id, buyerID, "221B Baker Street", total, status, orderDate,
	).Error)
	for i, artworkID := range artworkIDs {
		require.NoError(f.t, f.db.Exec(
			"INSERT INTO artwork_order_items (id, order_id, artwork_id, quantity, unit_price) VALUES (?, ?, ?, 1, ?)",
			id*100+int64(i), id, artworkID, total,
		).Error)
	}
}

func (f fixture) commission(id, buyerID, artistID int64, budget string, status *string, submittedAt *time.Time) {
	f.t.Helper()
	require.NoError(f.t, f.db.Exec(
		`INSERT INTO commission_requests
			(id, buyer_id, artist_id, title, artwork_type, dimensions, style, urgency, budget, shipping_address, delivery_status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, buyerID, artistID, "Family portrait", "Painting", "18x24", "Watercolor", "normal", budget, "7 Lake Road", status, submittedAt,
	).Error)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

type stubOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) Events() []outbox.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.DomainEvent(nil), s.events...)
}

type notifiedChange struct {
	Status   enums.DeliveryStatus
	Delivery DeliveryRequest
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []notifiedChange
}

func (n *recordingNotifier) DeliveryChanged(ctx context.Context, status enums.DeliveryStatus, delivery DeliveryRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, notifiedChange{Status: status, Delivery: delivery})
}

func (n *recordingNotifier) Changes() []notifiedChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifiedChange(nil), n.changes...)
}

type testEnv struct {
	db       *gorm.DB
	fx       fixture
	repo     Repository
	svc      Service
	outbox   *stubOutbox
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T, wrap func(Repository) Repository) *testEnv {
	t.Helper()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	if wrap != nil {
		repo = wrap(repo)
	}
	box := &stubOutbox{}
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       dbpkg.NewFromConn(conn),
		Outbox:   box,
		Notifier: notifier,
		Logger:   logger.New(logger.Options{ServiceName: "deliveries-test", Output: io.Discard}),
		Stats:    StatsConfig{AverageDeliveryHours: 48, AverageRating: 4.5},
		Now:      func() time.Time { return ts("2026-03-01T10:00:00Z") },
	})
	require.NoError(t, err)
	return &testEnv{
		db:       conn,
		fx:       fixture{t: t, db: conn},
		repo:     repo,
		svc:      svc,
		outbox:   box,
		notifier: notifier,
	}
}

// seedMarketplace loads the shared scenario: buyer 1, artist 2, partner 3,
// artwork order 7 and commission 12, both pending.
func (e *testEnv) seedMarketplace() {
	e.fx.user(1, "Asha", enums.UserRoleBuyer)
	e.fx.user(2, "Ravi", enums.UserRoleArtist)
	e.fx.user(3, "Kiran", enums.UserRoleDeliveryPartner)
	e.fx.profile(2, "Mumbai")
	e.fx.artwork(41, 2, "Monsoon Harbor")
	e.fx.order(7, 1, "1250.50", strPtr("pending"), timePtr(ts("2026-02-10T09:00:00Z")), 41)
	e.fx.commission(12, 1, 2, "Rs. 15,000", strPtr("pending"), timePtr(ts("2026-02-12T09:00:00Z")))
}
