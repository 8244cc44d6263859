// Package service implements the reservation engine: the checkout / hold /
// checkin / release state machine over a license pool, with the remote
// License Status Document service as the final arbiter of license grants.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Astemirdum/odl-service/config"
	"github.com/Astemirdum/odl-service/internal/errs"
	"github.com/Astemirdum/odl-service/internal/events"
	"github.com/Astemirdum/odl-service/internal/lsd"
	"github.com/Astemirdum/odl-service/internal/model"
	"github.com/Astemirdum/odl-service/internal/queue"
	"github.com/Astemirdum/odl-service/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Service struct {
	log  *zap.Logger
	repo repository.Repository
	lsd  lsd.Client
	pub  events.Publisher
	cfg  config.Circulation
}

func NewService(repo repository.Repository, client lsd.Client, pub events.Publisher, cfg config.Circulation, log *zap.Logger) *Service {
	return &Service{
		log:  log,
		repo: repo,
		lsd:  client,
		pub:  pub,
		cfg:  cfg,
	}
}

// Borrow attempts a checkout and falls back to the hold queue when no copy
// can be granted right now. The remote service resolves races between
// patrons: a checkout that loses settles into a non-ready status and the
// loser queues up instead.
func (s *Service) Borrow(ctx context.Context, patronID, poolUid string) (model.LoanResult, error) {
	loan, err := s.Checkout(ctx, patronID, poolUid)
	if err == nil {
		return model.LoanResult{Kind: model.LoanGranted, Loan: &loan}, nil
	}
	if errors.Is(err, errs.ErrNoAvailableCopies) || errors.Is(err, errs.ErrCannotLoan) {
		hold, holdErr := s.PlaceHold(ctx, patronID, poolUid)
		if holdErr != nil {
			return model.LoanResult{}, holdErr
		}
		return model.LoanResult{Kind: model.LoanQueued, Hold: &hold}, nil
	}
	return model.LoanResult{}, err
}

func (s *Service) Checkout(ctx context.Context, patronID, poolUid string) (model.Loan, error) {
	pool, err := s.repo.GetPool(ctx, poolUid)
	if err != nil {
		return model.Loan{}, err
	}
	// Local invariants are checked before anything touches the remote, so a
	// failure here never leaves partial remote state.
	if _, err := s.repo.GetLoan(ctx, patronID, pool.ID); err == nil {
		return model.Loan{}, errs.ErrAlreadyCheckedOut
	} else if !errors.Is(err, errs.ErrNotFound) {
		return model.Loan{}, err
	}

	counters, err := s.RecomputePool(ctx, pool.ID)
	if err != nil {
		return model.Loan{}, err
	}
	now := time.Now().UTC()

	lic, err := s.bestLicense(ctx, pool.ID, now)
	if err != nil {
		return model.Loan{}, err
	}

	hold, holdErr := s.repo.GetHold(ctx, patronID, pool.ID)
	if holdErr != nil && !errors.Is(holdErr, errs.ErrNotFound) {
		return model.Loan{}, holdErr
	}
	hasHold := holdErr == nil
	// A patron whose hold is at the front of the queue takes the copy
	// reserved for them; everyone else needs a genuinely available one.
	if !(hasHold && hold.Ready(now)) && counters.LicensesAvailable < 1 {
		return model.Loan{}, errs.ErrNoAvailableCopies
	}

	// Reserve the local handle first: the remote checkout request embeds a
	// callback URL keyed by this row's id.
	end := now.Add(s.cfg.DefaultLoanPeriod)
	loan := model.Loan{
		PatronID:   patronID,
		PoolID:     pool.ID,
		PoolUid:    pool.PoolUid,
		LicenseID:  lic.ID,
		CheckoutID: uuid.NewString(),
		StartDate:  now,
		EndDate:    &end,
	}
	loan, err = s.repo.CreateLoan(ctx, loan)
	if err != nil {
		return model.Loan{}, err
	}

	doc, err := s.lsd.Checkout(ctx, lic, lsd.CheckoutParams{
		NotificationURL: s.notificationURL(loan.ID),
		Expires:         end,
	})
	if err != nil {
		s.releaseLoanHandle(ctx, loan.ID)
		return model.Loan{}, errors.Wrapf(errs.ErrCannotLoan, "remote checkout: %v", err)
	}
	if doc.Status != model.StatusReady && doc.Status != model.StatusActive {
		s.releaseLoanHandle(ctx, loan.ID)
		return model.Loan{}, errors.Wrapf(errs.ErrCannotLoan, "remote checkout settled into %q", doc.Status)
	}
	self, ok := doc.Link(lsd.RelSelf)
	if !ok {
		s.releaseLoanHandle(ctx, loan.ID)
		return model.Loan{}, errors.Wrap(errs.ErrCannotLoan, "status document has no self link")
	}

	if re := doc.RightsEnd(); re != nil {
		end = re.UTC()
	}
	if err := s.repo.CommitLoanRemote(ctx, loan.ID, self, &end); err != nil {
		return model.Loan{}, err
	}
	loan.ExternalIdentifier = &self
	loan.EndDate = &end

	if lic.RemainingCheckouts != nil {
		if err := s.repo.DecrementRemainingCheckouts(ctx, lic.ID); err != nil {
			return model.Loan{}, err
		}
	}
	if hasHold {
		if err := s.repo.DeleteHold(ctx, hold.ID); err != nil {
			return model.Loan{}, err
		}
	}
	if _, err := s.RecomputePool(ctx, pool.ID); err != nil {
		return model.Loan{}, err
	}
	s.publish(model.EventCheckedOut, pool.PoolUid, patronID)
	return loan, nil
}

func (s *Service) Checkin(ctx context.Context, patronID, poolUid string) error {
	pool, err := s.repo.GetPool(ctx, poolUid)
	if err != nil {
		return err
	}
	loan, err := s.repo.GetLoan(ctx, patronID, pool.ID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrNotCheckedOut
	} else if err != nil {
		return err
	}

	// A loan that never settled remotely has nothing to return.
	if loan.ExternalIdentifier == nil {
		return s.finishLoan(ctx, loan, model.EventCheckedIn)
	}

	doc, err := s.lsd.FetchStatus(ctx, *loan.ExternalIdentifier)
	if err != nil {
		return errors.Wrapf(errs.ErrCannotFulfill, "fetch status: %v", err)
	}
	// The remote already considers the loan over: converge, don't complain.
	if doc.Status.Terminal() {
		return s.finishLoan(ctx, loan, model.EventCheckedIn)
	}

	if _, ok := doc.Link(lsd.RelReturn); !ok {
		// Return happens through the DRM channel for this title. Succeed
		// locally; the loan stays until the remote confirms via the
		// notification callback or the next status sync.
		_, err := s.RecomputePool(ctx, pool.ID)
		return err
	}

	if err := s.lsd.Return(ctx, doc); err != nil {
		return errors.Wrapf(errs.ErrCannotFulfill, "return: %v", err)
	}
	doc, err = s.lsd.FetchStatus(ctx, *loan.ExternalIdentifier)
	if err != nil {
		return errors.Wrapf(errs.ErrCannotFulfill, "confirm return: %v", err)
	}
	if !doc.Status.Terminal() {
		return errors.Wrapf(errs.ErrCannotFulfill, "return did not terminate the loan, status %q", doc.Status)
	}
	return s.finishLoan(ctx, loan, model.EventCheckedIn)
}

func (s *Service) PlaceHold(ctx context.Context, patronID, poolUid string) (model.Hold, error) {
	pool, err := s.repo.GetPool(ctx, poolUid)
	if err != nil {
		return model.Hold{}, err
	}
	if _, err := s.repo.GetHold(ctx, patronID, pool.ID); err == nil {
		return model.Hold{}, errs.ErrAlreadyOnHold
	} else if !errors.Is(err, errs.ErrNotFound) {
		return model.Hold{}, err
	}
	// A patron holds at most one of {loan, hold} per pool: queueing up behind
	// your own loan would inflate everyone else's estimates.
	if _, err := s.repo.GetLoan(ctx, patronID, pool.ID); err == nil {
		return model.Hold{}, errs.ErrAlreadyCheckedOut
	} else if !errors.Is(err, errs.ErrNotFound) {
		return model.Hold{}, err
	}

	counters, err := s.RecomputePool(ctx, pool.ID)
	if err != nil {
		return model.Hold{}, err
	}
	if counters.LicensesAvailable > 0 {
		return model.Hold{}, errs.ErrCurrentlyAvailable
	}

	hold := model.Hold{
		PatronID:  patronID,
		PoolID:    pool.ID,
		PoolUid:   pool.PoolUid,
		StartDate: time.Now().UTC(),
		Position:  counters.PatronsInHoldQueue + 1,
	}
	hold, err = s.repo.CreateHold(ctx, hold)
	if err != nil {
		return model.Hold{}, err
	}
	if _, err := s.RecomputePool(ctx, pool.ID); err != nil {
		return model.Hold{}, err
	}
	// Re-read: the recompute just assigned the real position and estimate.
	hold, err = s.repo.GetHold(ctx, patronID, pool.ID)
	if err != nil {
		return model.Hold{}, err
	}
	s.publish(model.EventHoldPlaced, pool.PoolUid, patronID)
	return hold, nil
}

func (s *Service) ReleaseHold(ctx context.Context, patronID, poolUid string) error {
	pool, err := s.repo.GetPool(ctx, poolUid)
	if err != nil {
		return err
	}
	hold, err := s.repo.GetHold(ctx, patronID, pool.ID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrNotOnHold
	} else if err != nil {
		return err
	}
	if err := s.repo.DeleteHold(ctx, hold.ID); err != nil {
		return errors.Wrap(errs.ErrCannotReleaseHold, err.Error())
	}
	// May promote the next hold in line to a reserved copy.
	if _, err := s.RecomputePool(ctx, pool.ID); err != nil {
		return err
	}
	s.publish(model.EventHoldReleased, pool.PoolUid, patronID)
	return nil
}

// Notify handles the remote distributor's push callback for a loan: re-fetch
// the status document and converge exactly like a checkin poll would.
func (s *Service) Notify(ctx context.Context, loanID int) error {
	loan, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		return err
	}
	if loan.ExternalIdentifier == nil {
		// Notified mid-checkout, before the self link was stored; the
		// checkout path will settle the loan itself.
		return nil
	}
	doc, err := s.lsd.FetchStatus(ctx, *loan.ExternalIdentifier)
	if err != nil {
		return errors.Wrapf(errs.ErrCannotFulfill, "fetch status: %v", err)
	}
	if doc.Status.Terminal() {
		return s.finishLoan(ctx, loan, model.EventLoanRevoked)
	}
	if re := doc.RightsEnd(); re != nil {
		end := re.UTC()
		if err := s.repo.CommitLoanRemote(ctx, loan.ID, *loan.ExternalIdentifier, &end); err != nil {
			return err
		}
		if _, err := s.RecomputePool(ctx, loan.PoolID); err != nil {
			return err
		}
	}
	return nil
}

// RecomputePool reloads the pool's loans and holds, runs the hold-queue
// scheduler and persists the derived counters and hold schedule. It is
// idempotent and convergent; every operation calls it right before any
// decision that depends on the counters.
func (s *Service) RecomputePool(ctx context.Context, poolID int) (model.Counters, error) {
	pool, err := s.repo.GetPoolByID(ctx, poolID)
	if err != nil {
		return model.Counters{}, err
	}
	now := time.Now().UTC()

	loans, err := s.repo.ListActiveLoans(ctx, poolID, now)
	if err != nil {
		return model.Counters{}, err
	}
	holds, err := s.repo.ListActiveHolds(ctx, poolID, now)
	if err != nil {
		return model.Counters{}, err
	}

	snap := queue.Snapshot{
		LicensesOwned:     pool.LicensesOwned,
		Now:               now,
		LoanPeriod:        s.cfg.DefaultLoanPeriod,
		ReservationPeriod: s.cfg.DefaultReservationPeriod,
	}
	for _, l := range loans {
		end := l.StartDate.Add(s.cfg.DefaultLoanPeriod)
		if l.EndDate != nil {
			end = *l.EndDate
		}
		snap.Loans = append(snap.Loans, queue.Loan{ID: l.ID, Start: l.StartDate, End: end})
	}
	for _, h := range holds {
		snap.Holds = append(snap.Holds, queue.Hold{ID: h.ID, Start: h.StartDate, End: h.EndDate, Position: h.Position})
	}

	counters, updates := queue.Recompute(snap)
	for _, u := range updates {
		if err := s.repo.UpdateHoldSchedule(ctx, u.HoldID, u.Position, u.End); err != nil {
			return model.Counters{}, err
		}
	}
	mc := model.Counters{
		LicensesAvailable:  counters.Available,
		LicensesReserved:   counters.Reserved,
		PatronsInHoldQueue: counters.InQueue,
	}
	if err := s.repo.UpdatePoolCounters(ctx, poolID, mc); err != nil {
		return model.Counters{}, err
	}
	return mc, nil
}

// RecomputePoolByUid is the entry point for license-import notifications:
// the importer changed a pool's license set, so the counters and the hold
// schedule must be re-derived.
func (s *Service) RecomputePoolByUid(ctx context.Context, poolUid string) (model.Counters, error) {
	pool, err := s.repo.GetPool(ctx, poolUid)
	if err != nil {
		return model.Counters{}, err
	}
	return s.RecomputePool(ctx, pool.ID)
}

func (s *Service) GetLoans(ctx context.Context, patronID string) ([]model.Loan, error) {
	return s.repo.ListLoans(ctx, patronID)
}

func (s *Service) GetHolds(ctx context.Context, patronID string) ([]model.Hold, error) {
	return s.repo.ListHolds(ctx, patronID)
}

// bestLicense picks the first non-expired license with checkout budget
// left, in import order.
func (s *Service) bestLicense(ctx context.Context, poolID int, now time.Time) (model.License, error) {
	lics, err := s.repo.ListLicenses(ctx, poolID)
	if err != nil {
		return model.License{}, err
	}
	for _, lic := range lics {
		if lic.Checkoutable(now) {
			return lic, nil
		}
	}
	return model.License{}, errs.ErrNoLicenses
}

func (s *Service) finishLoan(ctx context.Context, loan model.Loan, event model.EventType) error {
	if err := s.repo.DeleteLoan(ctx, loan.ID); err != nil {
		return err
	}
	if _, err := s.RecomputePool(ctx, loan.PoolID); err != nil {
		return err
	}
	s.publish(event, loan.PoolUid, loan.PatronID)
	return nil
}

// releaseLoanHandle rolls back an optimistically created loan after a remote
// failure; an orphaned local loan with no remote counterpart must not
// survive the operation.
func (s *Service) releaseLoanHandle(ctx context.Context, loanID int) {
	if err := s.repo.DeleteLoan(ctx, loanID); err != nil {
		s.log.Error("rollback loan", zap.Int("loan_id", loanID), zap.Error(err))
	}
}

func (s *Service) notificationURL(loanID int) string {
	return fmt.Sprintf("%s/api/v1/notifications/%d?library=%s",
		s.cfg.NotificationBaseURL, loanID, s.cfg.LibraryShortName)
}

func (s *Service) publish(t model.EventType, poolUid, patronID string) {
	err := s.pub.Publish(model.CirculationEvent{
		Type:      t,
		PoolUid:   poolUid,
		PatronID:  patronID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("publish event", zap.String("type", string(t)), zap.Error(err))
	}
}
