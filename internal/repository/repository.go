package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Astemirdum/odl-service/internal/errs"
	"github.com/Astemirdum/odl-service/internal/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Repository interface {
	GetPool(ctx context.Context, poolUid string) (model.LicensePool, error)
	GetPoolByID(ctx context.Context, id int) (model.LicensePool, error)
	UpdatePoolCounters(ctx context.Context, poolID int, c model.Counters) error

	ListLicenses(ctx context.Context, poolID int) ([]model.License, error)
	DecrementRemainingCheckouts(ctx context.Context, licenseID int) error

	CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error)
	CommitLoanRemote(ctx context.Context, loanID int, externalID string, end *time.Time) error
	DeleteLoan(ctx context.Context, loanID int) error
	GetLoan(ctx context.Context, patronID string, poolID int) (model.Loan, error)
	GetLoanByID(ctx context.Context, loanID int) (model.Loan, error)
	ListLoans(ctx context.Context, patronID string) ([]model.Loan, error)
	ListActiveLoans(ctx context.Context, poolID int, now time.Time) ([]model.Loan, error)

	CreateHold(ctx context.Context, hold model.Hold) (model.Hold, error)
	DeleteHold(ctx context.Context, holdID int) error
	GetHold(ctx context.Context, patronID string, poolID int) (model.Hold, error)
	ListHolds(ctx context.Context, patronID string) ([]model.Hold, error)
	ListActiveHolds(ctx context.Context, poolID int, now time.Time) ([]model.Hold, error)
	UpdateHoldSchedule(ctx context.Context, holdID, position int, end *time.Time) error
	ListExpiredReservedHolds(ctx context.Context, now time.Time) ([]model.Hold, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	poolsTableName    = `license_pools`
	licensesTableName = `licenses`
	loansTableName    = `loans`
	holdsTableName    = `holds`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// uniqueViolation maps the (patron_id, pool_id) constraint into the given
// sentinel; that constraint is the only hard mutual-exclusion primitive in
// the whole engine.
func uniqueViolation(err error, sentinel error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return sentinel
	}
	return err
}

func (r *repository) GetPool(ctx context.Context, poolUid string) (model.LicensePool, error) {
	query, args, err := qb.Select("id", "pool_uid", "licenses_owned", "licenses_available", "licenses_reserved", "patrons_in_hold_queue").
		From(poolsTableName).
		Where(sq.Eq{"pool_uid": poolUid}).
		ToSql()
	if err != nil {
		return model.LicensePool{}, err
	}
	var pool model.LicensePool
	if err := r.db.GetContext(ctx, &pool, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LicensePool{}, errs.ErrNotFound
		}
		return model.LicensePool{}, err
	}
	return pool, nil
}

func (r *repository) GetPoolByID(ctx context.Context, id int) (model.LicensePool, error) {
	query, args, err := qb.Select("id", "pool_uid", "licenses_owned", "licenses_available", "licenses_reserved", "patrons_in_hold_queue").
		From(poolsTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.LicensePool{}, err
	}
	var pool model.LicensePool
	if err := r.db.GetContext(ctx, &pool, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LicensePool{}, errs.ErrNotFound
		}
		return model.LicensePool{}, err
	}
	return pool, nil
}

func (r *repository) UpdatePoolCounters(ctx context.Context, poolID int, c model.Counters) error {
	query, args, err := qb.Update(poolsTableName).
		Set("licenses_available", c.LicensesAvailable).
		Set("licenses_reserved", c.LicensesReserved).
		Set("patrons_in_hold_queue", c.PatronsInHoldQueue).
		Where(sq.Eq{"id": poolID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// ListLicenses returns the pool's licenses in import order; the queue-cycle
// arithmetic depends on that order being stable.
func (r *repository) ListLicenses(ctx context.Context, poolID int) ([]model.License, error) {
	query, args, err := qb.Select("id", "license_uid", "pool_id", "checkout_url", "status_url", "expires", "concurrent_checkouts", "remaining_checkouts").
		From(licensesTableName).
		Where(sq.Eq{"pool_id": poolID}).
		OrderBy("id asc").
		ToSql()
	if err != nil {
		return nil, err
	}
	var items []model.License
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DecrementRemainingCheckouts(ctx context.Context, licenseID int) error {
	q := `
	update licenses
	set remaining_checkouts = remaining_checkouts - 1
	where id = $1 and remaining_checkouts is not null and remaining_checkouts > 0`
	_, err := r.db.ExecContext(ctx, q, licenseID)
	return err
}

// CreateLoan reserves the local handle before the remote call: the row id is
// what gets baked into the notification callback URL. The caller commits the
// handle with CommitLoanRemote or releases it with DeleteLoan.
func (r *repository) CreateLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	query, args, err := qb.Insert(loansTableName).
		Columns("patron_id", "pool_id", "license_id", "checkout_id", "start_date", "end_date").
		Values(loan.PatronID, loan.PoolID, loan.LicenseID, loan.CheckoutID, loan.StartDate, loan.EndDate).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}
	if err := r.db.GetContext(ctx, &loan.ID, query, args...); err != nil {
		r.log.Debug("CreateLoan", zap.String("q", query), zap.Error(err))
		return model.Loan{}, uniqueViolation(err, errs.ErrAlreadyCheckedOut)
	}
	return loan, nil
}

func (r *repository) CommitLoanRemote(ctx context.Context, loanID int, externalID string, end *time.Time) error {
	q := qb.Update(loansTableName).
		Set("external_identifier", externalID).
		Where(sq.Eq{"id": loanID})
	if end != nil {
		q = q.Set("end_date", *end)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *repository) DeleteLoan(ctx context.Context, loanID int) error {
	query, args, err := qb.Delete(loansTableName).Where(sq.Eq{"id": loanID}).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

const loanColumns = `l.id, l.patron_id, l.pool_id, p.pool_uid, l.license_id, l.checkout_id, l.start_date, l.end_date, l.external_identifier`

func (r *repository) GetLoan(ctx context.Context, patronID string, poolID int) (model.Loan, error) {
	q := `
	select ` + loanColumns + `
	from loans l join license_pools p on p.id = l.pool_id
	where l.patron_id = $1 and l.pool_id = $2`
	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, q, patronID, poolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrNotFound
		}
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) GetLoanByID(ctx context.Context, loanID int) (model.Loan, error) {
	q := `
	select ` + loanColumns + `
	from loans l join license_pools p on p.id = l.pool_id
	where l.id = $1`
	var loan model.Loan
	if err := r.db.GetContext(ctx, &loan, q, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrNotFound
		}
		return model.Loan{}, err
	}
	return loan, nil
}

func (r *repository) ListLoans(ctx context.Context, patronID string) ([]model.Loan, error) {
	q := `
	select ` + loanColumns + `
	from loans l join license_pools p on p.id = l.pool_id
	where l.patron_id = $1
	order by l.start_date asc`
	var items []model.Loan
	if err := r.db.SelectContext(ctx, &items, q, patronID); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListActiveLoans(ctx context.Context, poolID int, now time.Time) ([]model.Loan, error) {
	q := `
	select ` + loanColumns + `
	from loans l join license_pools p on p.id = l.pool_id
	where l.pool_id = $1 and (l.end_date is null or l.end_date > $2)
	order by l.start_date asc`
	var items []model.Loan
	if err := r.db.SelectContext(ctx, &items, q, poolID, now); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateHold(ctx context.Context, hold model.Hold) (model.Hold, error) {
	query, args, err := qb.Insert(holdsTableName).
		Columns("patron_id", "pool_id", "start_date", "end_date", "position").
		Values(hold.PatronID, hold.PoolID, hold.StartDate, hold.EndDate, hold.Position).
		Suffix("returning id").
		ToSql()
	if err != nil {
		return model.Hold{}, err
	}
	if err := r.db.GetContext(ctx, &hold.ID, query, args...); err != nil {
		r.log.Debug("CreateHold", zap.String("q", query), zap.Error(err))
		return model.Hold{}, uniqueViolation(err, errs.ErrAlreadyOnHold)
	}
	return hold, nil
}

func (r *repository) DeleteHold(ctx context.Context, holdID int) error {
	query, args, err := qb.Delete(holdsTableName).Where(sq.Eq{"id": holdID}).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

const holdColumns = `h.id, h.patron_id, h.pool_id, p.pool_uid, h.start_date, h.end_date, h.position`

func (r *repository) GetHold(ctx context.Context, patronID string, poolID int) (model.Hold, error) {
	q := `
	select ` + holdColumns + `
	from holds h join license_pools p on p.id = h.pool_id
	where h.patron_id = $1 and h.pool_id = $2`
	var hold model.Hold
	if err := r.db.GetContext(ctx, &hold, q, patronID, poolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Hold{}, errs.ErrNotFound
		}
		return model.Hold{}, err
	}
	return hold, nil
}

func (r *repository) ListHolds(ctx context.Context, patronID string) ([]model.Hold, error) {
	q := `
	select ` + holdColumns + `
	from holds h join license_pools p on p.id = h.pool_id
	where h.patron_id = $1
	order by h.start_date asc`
	var items []model.Hold
	if err := r.db.SelectContext(ctx, &items, q, patronID); err != nil {
		return nil, err
	}
	return items, nil
}

// ListActiveHolds keeps reserved holds (position 0) until the reaper expires
// them, and queued holds regardless of their estimate.
func (r *repository) ListActiveHolds(ctx context.Context, poolID int, now time.Time) ([]model.Hold, error) {
	q := `
	select ` + holdColumns + `
	from holds h join license_pools p on p.id = h.pool_id
	where h.pool_id = $1 and (h.position > 0 or h.end_date is null or h.end_date > $2)
	order by h.start_date asc, h.id asc`
	var items []model.Hold
	if err := r.db.SelectContext(ctx, &items, q, poolID, now); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateHoldSchedule(ctx context.Context, holdID, position int, end *time.Time) error {
	query, args, err := qb.Update(holdsTableName).
		Set("position", position).
		Set("end_date", end).
		Where(sq.Eq{"id": holdID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// ListExpiredReservedHolds feeds the expiry reaper: reserved holds whose
// reservation window has lapsed.
func (r *repository) ListExpiredReservedHolds(ctx context.Context, now time.Time) ([]model.Hold, error) {
	q := `
	select ` + holdColumns + `
	from holds h join license_pools p on p.id = h.pool_id
	where h.position = 0 and h.end_date is not null and h.end_date < $1
	order by h.pool_id asc, h.start_date asc`
	var items []model.Hold
	if err := r.db.SelectContext(ctx, &items, q, now); err != nil {
		return nil, err
	}
	return items, nil
}
