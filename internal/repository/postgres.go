package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on PostgreSQL using pgx directly (no ORM).
//
// Units of work use pessimistic locking: the parent row is read with
// SELECT … FOR UPDATE inside a transaction, so a concurrent unit of work on
// the same row blocks until this one commits or rolls back. Reads of the
// capacity counter and the write that changes it can therefore never
// interleave with another caller's.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// inTx runs fn in a transaction that commits only when fn returns nil.
func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ─── Activities ───────────────────────────────────────────────────────────────

const activityColumns = `id, kind, title, category, description, location, starts_at, ends_at,
	max_participants, registered_count, status, donation_target, created_at, updated_at`

func scanActivity(row pgx.Row) (model.Activity, error) {
	var (
		a            model.Activity
		kind, status string
		target       *int64
	)
	err := row.Scan(&a.ID, &kind, &a.Title, &a.Category, &a.Description, &a.Location, &a.StartsAt, &a.EndsAt,
		&a.MaxParticipants, &a.RegisteredCount, &status, &target, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return a, err
	}
	a.Kind = model.ActivityKind(kind)
	a.Status = model.ActivityStatus(status)
	if target != nil {
		a.Donation = &model.DonationInfo{Target: *target}
	}
	return a, nil
}

func donationTarget(a model.Activity) *int64 {
	if a.Donation == nil {
		return nil
	}
	t := a.Donation.Target
	return &t
}

func (s *PostgresStore) CreateActivity(ctx context.Context, a model.Activity) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO activities (`+activityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, string(a.Kind), a.Title, a.Category, a.Description, a.Location, a.StartsAt, a.EndsAt,
		a.MaxParticipants, a.RegisteredCount, string(a.Status), donationTarget(a), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActivity(ctx context.Context, id string) (*model.Activity, error) {
	a, err := scanActivity(s.db.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("activity", id)
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) ListActivities(ctx context.Context, f model.ActivityFilter) ([]model.Activity, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.From != nil {
		add("starts_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("starts_at < $%d", *f.To)
	}
	if f.Category != "" {
		add("LOWER(category) = LOWER($%d)", f.Category)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}

	sql := `SELECT ` + activityColumns + ` FROM activities`
	if len(conds) > 0 {
		sql += ` WHERE ` + strings.Join(conds, " AND ")
	}
	sql += ` ORDER BY starts_at ASC`

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func lockActivity(ctx context.Context, tx pgx.Tx, id string) (model.Activity, error) {
	a, err := scanActivity(tx.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, apperr.NotFound("activity", id)
		}
		return a, fmt.Errorf("lock activity row: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) UpdateActivity(ctx context.Context, id string, fn func(a *model.Activity) error) (*model.Activity, error) {
	var out model.Activity
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		a, err := lockActivity(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&a); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE activities
			 SET title = $2, category = $3, description = $4, location = $5, starts_at = $6, ends_at = $7,
			     max_participants = $8, status = $9, donation_target = $10, updated_at = $11
			 WHERE id = $1`,
			a.ID, a.Title, a.Category, a.Description, a.Location, a.StartsAt, a.EndsAt,
			a.MaxParticipants, string(a.Status), donationTarget(a), a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update activity: %w", err)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PostgresStore) DeleteActivity(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("activity", id)
	}
	return nil
}

const registrationColumns = `id, activity_id, name, phone, created_at`

func scanRegistration(row pgx.Row) (model.Registration, error) {
	var r model.Registration
	err := row.Scan(&r.ID, &r.ActivityID, &r.Requester.Name, &r.Requester.Phone, &r.CreatedAt)
	return r, err
}

func (s *PostgresStore) ListRegistrations(ctx context.Context, activityID string) ([]model.Registration, error) {
	if _, err := s.GetActivity(ctx, activityID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+registrationColumns+`
		 FROM registrations
		 WHERE activity_id = $1
		 ORDER BY created_at ASC`,
		activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

func registrationsByPhone(ctx context.Context, q querier, phone string) ([]RegisteredActivity, error) {
	rows, err := q.Query(ctx,
		`SELECT r.id, r.activity_id, r.name, r.phone, r.created_at,
		        a.id, a.kind, a.title, a.category, a.description, a.location, a.starts_at, a.ends_at,
		        a.max_participants, a.registered_count, a.status, a.donation_target, a.created_at, a.updated_at
		 FROM registrations r
		 JOIN activities a ON a.id = r.activity_id
		 WHERE r.phone = $1
		 ORDER BY a.starts_at ASC`,
		phone,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations by phone: %w", err)
	}
	defer rows.Close()

	var out []RegisteredActivity
	for rows.Next() {
		var (
			ra           RegisteredActivity
			kind, status string
			target       *int64
		)
		r, a := &ra.Registration, &ra.Activity
		if err := rows.Scan(&r.ID, &r.ActivityID, &r.Requester.Name, &r.Requester.Phone, &r.CreatedAt,
			&a.ID, &kind, &a.Title, &a.Category, &a.Description, &a.Location, &a.StartsAt, &a.EndsAt,
			&a.MaxParticipants, &a.RegisteredCount, &status, &target, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		a.Kind = model.ActivityKind(kind)
		a.Status = model.ActivityStatus(status)
		if target != nil {
			a.Donation = &model.DonationInfo{Target: *target}
		}
		out = append(out, ra)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RegistrationsByPhone(ctx context.Context, phone string) ([]RegisteredActivity, error) {
	return registrationsByPhone(ctx, s.db, phone)
}

type pgRegistrationTx struct {
	tx       pgx.Tx
	activity model.Activity
	phone    string
}

func (t *pgRegistrationTx) Activity() model.Activity { return t.activity }

func (t *pgRegistrationTx) IsRegistered(ctx context.Context) (bool, error) {
	var dupCount int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE activity_id = $1 AND phone = $2`,
		t.activity.ID, t.phone,
	).Scan(&dupCount)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return dupCount > 0, nil
}

func (t *pgRegistrationTx) RequesterRegistrations(ctx context.Context) ([]RegisteredActivity, error) {
	return registrationsByPhone(ctx, t.tx, t.phone)
}

func (t *pgRegistrationTx) RequesterBorrowings(ctx context.Context) ([]BorrowingWithItem, error) {
	return borrowingsByPhone(ctx, t.tx, t.phone)
}

func (t *pgRegistrationTx) AddRegistration(ctx context.Context, reg model.Registration) (model.Activity, error) {
	a, err := scanActivity(t.tx.QueryRow(ctx,
		`UPDATE activities
		 SET registered_count = registered_count + 1, updated_at = $2
		 WHERE id = $1
		 RETURNING `+activityColumns,
		t.activity.ID, reg.CreatedAt,
	))
	if err != nil {
		return t.activity, fmt.Errorf("increment registered_count: %w", err)
	}

	_, err = t.tx.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5)`,
		reg.ID, reg.ActivityID, reg.Requester.Name, reg.Requester.Phone, reg.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return t.activity, apperr.Duplicate("%s is already registered for this activity", reg.Requester.Phone)
		}
		return t.activity, fmt.Errorf("insert registration: %w", err)
	}
	t.activity = a
	return a, nil
}

// RegisterTx serialises on the requester with a transaction-scoped advisory
// lock, then on the activity row with SELECT … FOR UPDATE. The requester
// lock keeps two registrations of the same person for different activities
// from both passing the conflict check.
func (s *PostgresStore) RegisterTx(ctx context.Context, activityID, phone string, fn func(tx RegistrationTx) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockRequester(ctx, tx, phone); err != nil {
			return err
		}
		a, err := lockActivity(ctx, tx, activityID)
		if err != nil {
			return err
		}
		return fn(&pgRegistrationTx{tx: tx, activity: a, phone: phone})
	})
}

// ─── Inventory ────────────────────────────────────────────────────────────────

const itemColumns = `i.id, i.name, i.description, i.quantity, i.condition, i.is_lendable, i.created_at, i.updated_at`

func scanItem(row pgx.Row, extra ...any) (model.InventoryItem, error) {
	var (
		it   model.InventoryItem
		cond string
	)
	dest := append([]any{&it.ID, &it.Name, &it.Description, &it.Quantity, &cond, &it.IsLendable, &it.CreatedAt, &it.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return it, err
	}
	it.Condition = model.ItemCondition(cond)
	return it, nil
}

func (s *PostgresStore) CreateItem(ctx context.Context, it model.InventoryItem) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO inventory_items (id, name, description, quantity, condition, is_lendable, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		it.ID, it.Name, it.Description, it.Quantity, string(it.Condition), it.IsLendable, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

const itemWithCountsSelect = `SELECT ` + itemColumns + `,
	COUNT(b.id) FILTER (WHERE b.status = 'approved'),
	COUNT(b.id) FILTER (WHERE b.status = 'pending')
	FROM inventory_items i
	LEFT JOIN borrowing_requests b ON b.item_id = i.id`

func (s *PostgresStore) GetItem(ctx context.Context, id string) (*ItemWithCounts, error) {
	var out ItemWithCounts
	it, err := scanItem(s.db.QueryRow(ctx, itemWithCountsSelect+` WHERE i.id = $1 GROUP BY i.id`, id),
		&out.Approved, &out.Pending)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("item", id)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	out.Item = it
	return &out, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, f model.ItemFilter) ([]ItemWithCounts, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("LOWER(i.name) LIKE $%d", "%"+strings.ToLower(q)+"%")
	}
	if f.Condition != "" {
		add("i.condition = $%d", string(f.Condition))
	}
	if f.Lendable != nil {
		add("i.is_lendable = $%d", *f.Lendable)
	}

	sql := itemWithCountsSelect
	if len(conds) > 0 {
		sql += ` WHERE ` + strings.Join(conds, " AND ")
	}
	sql += ` GROUP BY i.id ORDER BY i.name ASC`

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []ItemWithCounts
	for rows.Next() {
		var row ItemWithCounts
		it, err := scanItem(rows, &row.Approved, &row.Pending)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		row.Item = it
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteItem(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("item", id)
	}
	return nil
}

type pgItemTx struct {
	tx   pgx.Tx
	item model.InventoryItem
}

func (t *pgItemTx) Item() model.InventoryItem { return t.item }

func (t *pgItemTx) Request(ctx context.Context, id string) (model.BorrowingRequest, error) {
	r, err := scanBorrowing(t.tx.QueryRow(ctx,
		`SELECT `+borrowingColumns+` FROM borrowing_requests WHERE id = $1 AND item_id = $2 FOR UPDATE`,
		id, t.item.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r, apperr.NotFound("borrowing request", id)
		}
		return r, fmt.Errorf("lock borrowing request: %w", err)
	}
	return r, nil
}

func (t *pgItemTx) CountByStatus(ctx context.Context, status model.BorrowStatus) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM borrowing_requests WHERE item_id = $1 AND status = $2`,
		t.item.ID, string(status),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count borrowings: %w", err)
	}
	return n, nil
}

func (t *pgItemTx) SaveRequest(ctx context.Context, r model.BorrowingRequest) error {
	if r.ItemID != t.item.ID {
		return apperr.Validation("item_id", "request belongs to another item")
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO borrowing_requests (`+borrowingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (id) DO UPDATE SET
		     status = EXCLUDED.status,
		     rejection_reason = EXCLUDED.rejection_reason,
		     approved_by = EXCLUDED.approved_by,
		     approved_at = EXCLUDED.approved_at,
		     rejected_at = EXCLUDED.rejected_at,
		     rejected_by = EXCLUDED.rejected_by,
		     actual_return_date = EXCLUDED.actual_return_date,
		     updated_at = EXCLUDED.updated_at`,
		r.ID, r.ItemID, r.Borrower.Name, r.Borrower.Phone, r.Purpose, r.BorrowDate, r.ReturnDate, r.DocumentURL,
		string(r.Status), r.RejectionReason, r.ApprovedBy, r.ApprovedAt, r.RejectedAt, r.RejectedBy, r.ActualReturnDate,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save borrowing request: %w", err)
	}
	return nil
}

func (t *pgItemTx) SaveItem(ctx context.Context, it model.InventoryItem) error {
	if it.ID != t.item.ID {
		return apperr.Validation("id", "cannot change item id")
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE inventory_items
		 SET name = $2, description = $3, quantity = $4, condition = $5, is_lendable = $6, updated_at = $7
		 WHERE id = $1`,
		it.ID, it.Name, it.Description, it.Quantity, string(it.Condition), it.IsLendable, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	t.item = it
	return nil
}

func (t *pgItemTx) RequesterRegistrations(ctx context.Context, phone string) ([]RegisteredActivity, error) {
	return registrationsByPhone(ctx, t.tx, phone)
}

func (t *pgItemTx) RequesterBorrowings(ctx context.Context, phone string) ([]BorrowingWithItem, error) {
	return borrowingsByPhone(ctx, t.tx, phone)
}

func lockRequester(ctx context.Context, tx pgx.Tx, phone string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "phone:"+phone); err != nil {
		return fmt.Errorf("lock requester: %w", err)
	}
	return nil
}

func lockItem(ctx context.Context, tx pgx.Tx, itemID string) (model.InventoryItem, error) {
	it, err := scanItem(tx.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM inventory_items i WHERE i.id = $1 FOR UPDATE`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return it, apperr.NotFound("item", itemID)
		}
		return it, fmt.Errorf("lock item row: %w", err)
	}
	return it, nil
}

func (s *PostgresStore) WithItem(ctx context.Context, itemID string, fn func(tx ItemTx) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		it, err := lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		return fn(&pgItemTx{tx: tx, item: it})
	})
}

// BorrowTx takes the same requester advisory lock as RegisterTx before the
// item row, so a new request and a registration by the same person are
// checked for conflicts one at a time.
func (s *PostgresStore) BorrowTx(ctx context.Context, itemID, phone string, fn func(tx ItemTx) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockRequester(ctx, tx, phone); err != nil {
			return err
		}
		it, err := lockItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		return fn(&pgItemTx{tx: tx, item: it})
	})
}

// ─── Borrowings ───────────────────────────────────────────────────────────────

const borrowingColumns = `id, item_id, borrower_name, borrower_phone, purpose, borrow_date, return_date, document_url,
	status, rejection_reason, approved_by, approved_at, rejected_at, rejected_by, actual_return_date, created_at, updated_at`

func scanBorrowing(row pgx.Row, extra ...any) (model.BorrowingRequest, error) {
	var (
		r      model.BorrowingRequest
		status string
	)
	dest := append([]any{&r.ID, &r.ItemID, &r.Borrower.Name, &r.Borrower.Phone, &r.Purpose, &r.BorrowDate, &r.ReturnDate,
		&r.DocumentURL, &status, &r.RejectionReason, &r.ApprovedBy, &r.ApprovedAt, &r.RejectedAt, &r.RejectedBy, &r.ActualReturnDate,
		&r.CreatedAt, &r.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return r, err
	}
	r.Status = model.BorrowStatus(status)
	return r, nil
}

func (s *PostgresStore) GetBorrowing(ctx context.Context, id string) (*model.BorrowingRequest, error) {
	r, err := scanBorrowing(s.db.QueryRow(ctx, `SELECT `+borrowingColumns+` FROM borrowing_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("borrowing request", id)
		}
		return nil, fmt.Errorf("get borrowing request: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) ListBorrowings(ctx context.Context, f model.BorrowingFilter) ([]model.BorrowingRequest, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ItemID != "" {
		add("item_id = $%d", f.ItemID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Phone != "" {
		add("borrower_phone = $%d", f.Phone)
	}

	sql := `SELECT ` + borrowingColumns + ` FROM borrowing_requests`
	if len(conds) > 0 {
		sql += ` WHERE ` + strings.Join(conds, " AND ")
	}
	sql += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list borrowings: %w", err)
	}
	defer rows.Close()

	var out []model.BorrowingRequest
	for rows.Next() {
		r, err := scanBorrowing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan borrowing request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func borrowingsByPhone(ctx context.Context, q querier, phone string) ([]BorrowingWithItem, error) {
	rows, err := q.Query(ctx,
		`SELECT b.id, b.item_id, b.borrower_name, b.borrower_phone, b.purpose, b.borrow_date, b.return_date,
		        b.document_url, b.status, b.rejection_reason, b.approved_by, b.approved_at, b.rejected_at,
		        b.rejected_by, b.actual_return_date, b.created_at, b.updated_at, i.name
		 FROM borrowing_requests b
		 JOIN inventory_items i ON i.id = b.item_id
		 WHERE b.borrower_phone = $1
		 ORDER BY b.borrow_date ASC`,
		phone,
	)
	if err != nil {
		return nil, fmt.Errorf("list borrowings by phone: %w", err)
	}
	defer rows.Close()

	var out []BorrowingWithItem
	for rows.Next() {
		var bw BorrowingWithItem
		r, err := scanBorrowing(rows, &bw.ItemName)
		if err != nil {
			return nil, fmt.Errorf("scan borrowing request: %w", err)
		}
		bw.Request = r
		out = append(out, bw)
	}
	return out, rows.Err()
}

func (s *PostgresStore) BorrowingsByPhone(ctx context.Context, phone string) ([]BorrowingWithItem, error) {
	return borrowingsByPhone(ctx, s.db, phone)
}
