// Package store provides the badger-backed document store for invitations
// and users. Single-document updates are atomic; the invitation accept path
// relies on that for its exactly-once guarantee.
package store

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/stepweaver/cashflow-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Generic entities
	Invitations *Entity[domain.Invitation]
	Users       *Entity[domain.User]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	store.initInvitations()
	store.initUsers()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Ping verifies the database is responsive by running an empty read
// transaction.
func (s *Store) Ping() error {
	return s.db.View(func(_ *badger.Txn) error {
		return nil
	})
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// initInvitations initializes the Invitations entity.
//
// The "token" index resolves the raw bearer secret to a record. The
// "pending_email" index only exists while a record is pending, which makes
// the entity's index-uniqueness check enforce exactly the invariant the
// lifecycle needs: at most one pending invitation per normalized email,
// while accepted/cancelled records never block a re-invite.
func (s *Store) initInvitations() {
	s.Invitations = NewEntity[domain.Invitation](s, "invitation:").
		WithIndex("token", func(inv *domain.Invitation) []string {
			return []string{inv.Token}
		}).
		WithIndexTransform("pending_email",
			func(inv *domain.Invitation) []string {
				if inv.Status != domain.InvitationPending {
					return nil
				}
				return []string{domain.NormalizeEmail(inv.Email)}
			},
			domain.NormalizeEmail,
		)
}

// initUsers initializes the Users entity.
// Uses case-insensitive email indexing via the normalize transformation.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, "user:").
		WithIndexTransform("email",
			func(u *domain.User) []string {
				return []string{domain.NormalizeEmail(u.Email)}
			},
			domain.NormalizeEmail,
		)
}

