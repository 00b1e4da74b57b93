package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/pasacoin/pasanaku-server/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store implements the storage.Storage interface using SQL.
// It supports sqlite3 (default) and postgres.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store and runs pending migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapWriteError classifies write failures: UNIQUE violations become
// ErrAlreadyExists, everything else is treated as transient and safe for the
// caller to retry.
func wrapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return fmt.Errorf("%w: %v", domain.ErrTransient, err)
}

// groupRow is the flat groups-table projection of a domain.Group.
type groupRow struct {
	ID                 string       `db:"id"`
	Name               string       `db:"name"`
	CreatorAddress     string       `db:"creator_address"`
	ContributionAmount string       `db:"contribution_amount"`
	Capacity           int          `db:"capacity"`
	Frequency          string       `db:"frequency"`
	PayoutType         string       `db:"payout_type"`
	IsPublic           bool         `db:"is_public"`
	Status             string       `db:"status"`
	CurrentCycle       int          `db:"current_cycle"`
	CurrentPot         string       `db:"current_pot"`
	NextPaymentDue     sql.NullTime `db:"next_payment_due"`
	CreatedAt          time.Time    `db:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at"`
}

func (r *groupRow) toDomain() (*domain.Group, error) {
	amount, err := decimal.NewFromString(r.ContributionAmount)
	if err != nil {
		return nil, fmt.Errorf("parsing contribution amount for group %s: %w", r.ID, err)
	}
	pot, err := decimal.NewFromString(r.CurrentPot)
	if err != nil {
		return nil, fmt.Errorf("parsing pot for group %s: %w", r.ID, err)
	}

	g := &domain.Group{
		ID:                 r.ID,
		Name:               r.Name,
		CreatorAddress:     r.CreatorAddress,
		ContributionAmount: amount,
		Capacity:           r.Capacity,
		Frequency:          domain.Frequency(r.Frequency),
		PayoutType:         domain.PayoutType(r.PayoutType),
		IsPublic:           r.IsPublic,
		Status:             domain.GroupStatus(r.Status),
		CurrentCycle:       r.CurrentCycle,
		CurrentPot:         pot,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.NextPaymentDue.Valid {
		due := r.NextPaymentDue.Time
		g.NextPaymentDue = &due
	}
	return g, nil
}

type participantRow struct {
	GroupID     string        `db:"group_id"`
	Address     string        `db:"address"`
	Position    int           `db:"position"`
	Status      string        `db:"status"`
	TurnNumber  sql.NullInt64 `db:"turn_number"`
	HasReceived bool          `db:"has_received"`
}

func (r *participantRow) toDomain() *domain.Participant {
	p := &domain.Participant{
		Address:     r.Address,
		Status:      domain.ParticipantStatus(r.Status),
		HasReceived: r.HasReceived,
	}
	if r.TurnNumber.Valid {
		p.Turn = domain.AssignedTurn(int(r.TurnNumber.Int64))
	}
	return p
}

type transactionRow struct {
	ID            string    `db:"id"`
	GroupID       string    `db:"group_id"`
	Position      int       `db:"position"`
	Type          string    `db:"type"`
	Amount        string    `db:"amount"`
	Address       string    `db:"address"`
	SettlementRef string    `db:"settlement_ref"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r *transactionRow) toDomain() (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount for transaction %s: %w", r.ID, err)
	}
	return &domain.Transaction{
		ID:            r.ID,
		Type:          domain.TransactionType(r.Type),
		Amount:        amount,
		Timestamp:     r.CreatedAt,
		Address:       r.Address,
		SettlementRef: r.SettlementRef,
	}, nil
}

// CreateGroup inserts a new group together with its initial roster and log.
func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapWriteError(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, creator_address, contribution_amount, capacity, frequency,
		                     payout_type, is_public, status, current_cycle, current_pot,
		                     next_payment_due, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		group.ID, group.Name, group.CreatorAddress, group.ContributionAmount.String(),
		group.Capacity, group.Frequency, group.PayoutType, group.IsPublic, group.Status,
		group.CurrentCycle, group.CurrentPot.String(), nullTime(group.NextPaymentDue),
		group.CreatedAt, group.UpdatedAt)
	if err != nil {
		return wrapWriteError(err)
	}

	if err := insertParticipants(ctx, tx, group); err != nil {
		return wrapWriteError(err)
	}
	if err := insertTransactions(ctx, tx, group); err != nil {
		return wrapWriteError(err)
	}
	return wrapWriteError(tx.Commit())
}

// UpdateGroup replaces the group's persisted state in one transaction.
// The roster is rewritten (at most 20 rows); transactions are append-only,
// existing rows are left untouched via ON CONFLICT DO NOTHING.
func (s *Store) UpdateGroup(ctx context.Context, group *domain.Group) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapWriteError(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE groups SET name = $1, status = $2, current_cycle = $3, current_pot = $4,
		                   next_payment_due = $5, updated_at = $6
		 WHERE id = $7`,
		group.Name, group.Status, group.CurrentCycle, group.CurrentPot.String(),
		nullTime(group.NextPaymentDue), group.UpdatedAt, group.ID)
	if err != nil {
		return wrapWriteError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE group_id = $1`, group.ID); err != nil {
		return wrapWriteError(err)
	}
	if err := insertParticipants(ctx, tx, group); err != nil {
		return wrapWriteError(err)
	}
	if err := insertTransactions(ctx, tx, group); err != nil {
		return wrapWriteError(err)
	}
	return wrapWriteError(tx.Commit())
}

func insertParticipants(ctx context.Context, tx *sqlx.Tx, group *domain.Group) error {
	for i, p := range group.Participants {
		var turn sql.NullInt64
		if n, ok := p.Turn.Value(); ok {
			turn = sql.NullInt64{Int64: int64(n), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (group_id, address, position, status, turn_number, has_received)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			group.ID, p.Address, i, p.Status, turn, p.HasReceived)
		if err != nil {
			return err
		}
	}
	return nil
}

func insertTransactions(ctx context.Context, tx *sqlx.Tx, group *domain.Group) error {
	for i, t := range group.Transactions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, group_id, position, type, amount, address, settlement_ref, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO NOTHING`,
			t.ID, group.ID, i, t.Type, t.Amount.String(), t.Address, t.SettlementRef, t.Timestamp)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetGroup loads a group with its roster and transaction log.
func (s *Store) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	var row groupRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, name, creator_address, contribution_amount, capacity, frequency, payout_type,
		        is_public, status, current_cycle, current_pot, next_payment_due, created_at, updated_at
		 FROM groups WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	group, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	if err := s.loadChildren(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Store) loadChildren(ctx context.Context, group *domain.Group) error {
	var prows []participantRow
	err := s.db.SelectContext(ctx, &prows,
		`SELECT group_id, address, position, status, turn_number, has_received
		 FROM participants WHERE group_id = $1 ORDER BY position`, group.ID)
	if err != nil {
		return err
	}
	group.Participants = make([]*domain.Participant, len(prows))
	for i := range prows {
		group.Participants[i] = prows[i].toDomain()
	}

	var trows []transactionRow
	err = s.db.SelectContext(ctx, &trows,
		`SELECT id, group_id, position, type, amount, address, settlement_ref, created_at
		 FROM transactions WHERE group_id = $1 ORDER BY position`, group.ID)
	if err != nil {
		return err
	}
	group.Transactions = make([]*domain.Transaction, len(trows))
	for i := range trows {
		t, err := trows[i].toDomain()
		if err != nil {
			return err
		}
		group.Transactions[i] = t
	}
	return nil
}

// ListPublicOpenGroups returns joinable public groups, newest first.
func (s *Store) ListPublicOpenGroups(ctx context.Context) ([]*domain.Group, error) {
	return s.listGroups(ctx,
		`SELECT id, name, creator_address, contribution_amount, capacity, frequency, payout_type,
		        is_public, status, current_cycle, current_pot, next_payment_due, created_at, updated_at
		 FROM groups WHERE is_public = TRUE AND status = 'open' ORDER BY created_at DESC`)
}

// ListGroupsByMember returns groups the address participates in, newest first.
func (s *Store) ListGroupsByMember(ctx context.Context, address string) ([]*domain.Group, error) {
	return s.listGroups(ctx,
		`SELECT g.id, g.name, g.creator_address, g.contribution_amount, g.capacity, g.frequency,
		        g.payout_type, g.is_public, g.status, g.current_cycle, g.current_pot,
		        g.next_payment_due, g.created_at, g.updated_at
		 FROM groups g
		 JOIN participants p ON p.group_id = g.id
		 WHERE p.address = $1 ORDER BY g.created_at DESC`, address)
}

func (s *Store) listGroups(ctx context.Context, query string, args ...any) ([]*domain.Group, error) {
	var rows []groupRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	groups := make([]*domain.Group, 0, len(rows))
	for i := range rows {
		group, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		if err := s.loadChildren(ctx, group); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// CreateNotification persists a rendered notification.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, address, group_id, kind, message, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.Address, n.GroupID, n.Kind, n.Message, n.Read, n.CreatedAt)
	return wrapWriteError(err)
}

// ListNotifications returns an address's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, address string) ([]*domain.Notification, error) {
	var list []*domain.Notification
	err := s.db.SelectContext(ctx, &list,
		`SELECT id, address, group_id, kind, message, read, created_at
		 FROM notifications WHERE address = $1 ORDER BY created_at DESC`, address)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// MarkNotificationRead marks one of the address's notifications as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id, address string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND address = $2`, id, address)
	if err != nil {
		return wrapWriteError(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks all of the address's notifications as read.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, address string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE address = $1`, address)
	return wrapWriteError(err)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
