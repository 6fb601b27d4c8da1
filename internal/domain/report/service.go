package report

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Notifier relays lifecycle events to the external channel. Every method
// is best-effort: implementations log failures and never surface them.
type Notifier interface {
	// NotifySubmission reports whether a send was actually dispatched,
	// so callers can tell the user about the relay outcome separately
	// from the persistence outcome.
	NotifySubmission(r *Report, id int64) bool
	NotifyStatusChange(id int64, oldStatus, newStatus Status, actor string)
	NotifyComment(id int64, author, text string)
	NotifyDeletion(r *Report, actor string)
}

// Service orchestrates the report lifecycle over the repository and
// triggers notifications on state changes.
type Service struct {
	repo     Repository
	notifier Notifier
	pending  *pendingDeletions
}

// NewService creates the report lifecycle service.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		pending:  newPendingDeletions(DeleteConfirmWindow),
	}
}

// Submit persists a new report and relays it best-effort. Submission
// throttling is the caller's job: the handler consults the rate limiter
// before constructing the draft.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest, ipAddress string) (*SubmitResponse, error) {
	rep := &Report{
		PlayerName:  req.PlayerName,
		PlayerUUID:  req.PlayerUUID,
		Description: req.Description,
		World:       req.World,
		X:           req.X,
		Y:           req.Y,
		Z:           req.Z,
		IPAddress:   ipAddress,
		GameMode:    req.GameMode,
		Health:      req.Health,
		Level:       req.Level,
		Inventory:   req.Inventory,
		Status:      StatusOpen,
	}
	if rep.Inventory == "" {
		rep.Inventory = "Empty"
	}

	id, err := s.repo.Insert(ctx, rep)
	if err != nil {
		log.Error().Err(err).Msg("Failed to save report")
		return nil, err
	}
	rep.ID = id

	resp := &SubmitResponse{ID: id, Status: StatusOpen}
	resp.Relayed = s.notifier.NotifySubmission(rep, id)
	if !resp.Relayed {
		resp.RelayNote = "report saved, external relay skipped"
	}
	return resp, nil
}

// UpdateStatus moves a report to the given status and records the acting
// handler. The transition graph is unrestricted; a no-op transition is
// permitted and still notifies. Returns false when the report does not
// exist.
func (s *Service) UpdateStatus(ctx context.Context, id int64, newStatus Status, actor string) (bool, error) {
	if !newStatus.Valid() {
		return false, ErrInvalidStatus
	}

	old, err := s.repo.SetStatus(ctx, id, newStatus, actor)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return false, nil
		}
		log.Error().Err(err).Int64("report_id", id).Msg("Failed to update report status")
		return false, err
	}

	s.notifier.NotifyStatusChange(id, old, newStatus, actor)
	return true, nil
}

// AddComment appends one timestamped, authored line to the report's
// comment log. Entries are never edited or removed, only appended.
func (s *Service) AddComment(ctx context.Context, id int64, author, text string) (bool, error) {
	line := FormatComment(time.Now(), author, text)

	if err := s.repo.AppendComment(ctx, id, line); err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return false, nil
		}
		log.Error().Err(err).Int64("report_id", id).Msg("Failed to add report comment")
		return false, err
	}

	s.notifier.NotifyComment(id, author, text)
	return true, nil
}

// RequestDelete drives the two-phase deletion flow. The first call (or a
// call naming a different report than the pending one) records a pending
// entry and returns it for confirmation; a matching second call within
// the window performs the delete.
func (s *Service) RequestDelete(ctx context.Context, actorID string, id int64, actor string) (*DeleteResponse, error) {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrReportNotFound
	}

	if s.pending.confirm(actorID, id) {
		if err := s.delete(ctx, rep, actor); err != nil {
			return nil, err
		}
		return &DeleteResponse{Deleted: true}, nil
	}

	return &DeleteResponse{
		Pending:   true,
		ExpiresIn: int(s.pending.remaining(actorID) / time.Second),
		Report: &Summary{
			ID:          rep.ID,
			PlayerName:  rep.PlayerName,
			Description: rep.Description,
			Status:      rep.Status,
			CreatedAt:   rep.CreatedAt,
		},
	}, nil
}

// ForceDelete bypasses the two-phase flow. Privileged callers only.
func (s *Service) ForceDelete(ctx context.Context, id int64, actor string) error {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rep == nil {
		return ErrReportNotFound
	}
	return s.delete(ctx, rep, actor)
}

// delete removes the row and emits the deletion notification with the
// pre-delete snapshot, since the row no longer exists afterwards.
func (s *Service) delete(ctx context.Context, snapshot *Report, actor string) error {
	if err := s.repo.Delete(ctx, snapshot.ID); err != nil {
		log.Error().Err(err).Int64("report_id", snapshot.ID).Msg("Failed to delete report")
		return err
	}

	log.Info().Int64("report_id", snapshot.ID).Str("actor", actor).Msg("Report deleted")
	s.notifier.NotifyDeletion(snapshot, actor)
	return nil
}

// List returns a page of report summaries, newest first.
func (s *Service) List(ctx context.Context, filter *ListFilter) ([]*Summary, int, error) {
	var status string
	if filter != nil {
		status = filter.Status
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list reports")
		return []*Summary{}, 0, err
	}
	total, err := s.repo.Count(ctx, status)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count reports")
		return rows, len(rows), nil
	}
	return rows, total, nil
}

// GetDetail returns the full decrypted report.
func (s *Service) GetDetail(ctx context.Context, id int64) (*Report, error) {
	rep, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrReportNotFound
	}
	return rep, nil
}

// GetComments returns the ordered comment log.
func (s *Service) GetComments(ctx context.Context, id int64) ([]string, error) {
	return s.repo.GetComments(ctx, id)
}
