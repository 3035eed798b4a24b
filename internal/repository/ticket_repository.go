package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hubops/internal/domain"
)

// TicketFilter captures dashboard listing parameters.
type TicketFilter struct {
	ReporterID   *string
	DepartmentID *string
	StaffID      *string
	Statuses     []domain.TicketStatus
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence. CompareAndSet is the only
// mutation path after creation; it fails with ErrVersionConflict when the
// stored version no longer matches.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CompareAndSet(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, tenant_name, anonymous, type, priority, description, status,
       reporter_id, assigned_dept_id, assigned_staff_id, staff_status,
       estimated_fix_time, assigned_duration_minutes, accepted_at, resolved_at,
       photo_url, proof_url, rejection_message, feedback_rating,
       version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, tenant_name, anonymous, type, priority, description, status,
            reporter_id, assigned_dept_id, assigned_staff_id, staff_status,
            estimated_fix_time, assigned_duration_minutes, accepted_at, resolved_at,
            photo_url, proof_url, rejection_message, feedback_rating, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.TenantName,
		ticket.Anonymous,
		ticket.Type,
		ticket.Priority,
		ticket.Description,
		ticket.Status,
		ticket.ReporterID,
		ticket.AssignedDeptID,
		ticket.AssignedStaffID,
		ticket.StaffStatus,
		ticket.EstimatedFixTime,
		ticket.AssignedDurationMinutes,
		ticket.AcceptedAt,
		ticket.ResolvedAt,
		ticket.PhotoURL,
		ticket.ProofURL,
		ticket.RejectionMessage,
		ticket.FeedbackRating,
		ticket.Version,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// CompareAndSet writes the ticket only when the stored version still equals
// expectedVersion, bumping the version on success. This serializes concurrent
// transitions on the same ticket: one wins, the loser sees ErrVersionConflict.
func (r *ticketRepository) CompareAndSet(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	const query = `
        UPDATE tickets SET status=$1, assigned_dept_id=$2, assigned_staff_id=$3, staff_status=$4,
            estimated_fix_time=$5, assigned_duration_minutes=$6, accepted_at=$7, resolved_at=$8,
            proof_url=$9, rejection_message=$10, feedback_rating=$11,
            version=version+1, updated_at=NOW()
        WHERE id=$12 AND version=$13`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.AssignedDeptID,
		ticket.AssignedStaffID,
		ticket.StaffStatus,
		ticket.EstimatedFixTime,
		ticket.AssignedDurationMinutes,
		ticket.AcceptedAt,
		ticket.ResolvedAt,
		ticket.ProofURL,
		ticket.RejectionMessage,
		ticket.FeedbackRating,
		ticket.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	ticket.Version = expectedVersion + 1
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("assigned_dept_id=$%d", len(args)))
	}
	if filter.StaffID != nil {
		args = append(args, *filter.StaffID)
		clauses = append(clauses, fmt.Sprintf("assigned_staff_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TenantName,
		&ticket.Anonymous,
		&ticket.Type,
		&ticket.Priority,
		&ticket.Description,
		&ticket.Status,
		&ticket.ReporterID,
		&ticket.AssignedDeptID,
		&ticket.AssignedStaffID,
		&ticket.StaffStatus,
		&ticket.EstimatedFixTime,
		&ticket.AssignedDurationMinutes,
		&ticket.AcceptedAt,
		&ticket.ResolvedAt,
		&ticket.PhotoURL,
		&ticket.ProofURL,
		&ticket.RejectionMessage,
		&ticket.FeedbackRating,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
