package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsguardian/backend/internal/domain"
)

// TicketRepository encapsulates ticket persistence. GetByID and Update report a
// missing ticket as pgx.ErrNoRows; the service layer maps that to NotFound.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context) ([]domain.Ticket, error)
	Search(ctx context.Context, term string) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, reporter, priority, category, status, assigned_team, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	if err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Reporter,
		ticket.Priority,
		ticket.Category,
		ticket.Status,
		ticket.AssignedTeam,
		ticket.CreatedAt,
	).Scan(&ticket.ID); err != nil {
		return err
	}
	return r.replaceSuggestions(ctx, ticket.ID, ticket.Suggestions)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, reporter=$3, priority=$4, category=$5,
            status=$6, assigned_team=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Reporter,
		ticket.Priority,
		ticket.Category,
		ticket.Status,
		ticket.AssignedTeam,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return r.replaceSuggestions(ctx, ticket.ID, ticket.Suggestions)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, reporter, COALESCE(priority,''), COALESCE(category,''),
               status, assigned_team, created_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Reporter,
		&ticket.Priority,
		&ticket.Category,
		&ticket.Status,
		&ticket.AssignedTeam,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	suggestions, err := r.loadSuggestions(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Suggestions = suggestions
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT id, title, description, reporter, COALESCE(priority,''), COALESCE(category,''),
               status, assigned_team, created_at
        FROM tickets ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanTickets(ctx, rows)
}

func (r *ticketRepository) Search(ctx context.Context, term string) ([]domain.Ticket, error) {
	const query = `
        SELECT id, title, description, reporter, COALESCE(priority,''), COALESCE(category,''),
               status, assigned_team, created_at
        FROM tickets
        WHERE LOWER(title) LIKE $1 OR LOWER(description) LIKE $1
        ORDER BY id`
	pattern := "%" + strings.ToLower(term) + "%"
	rows, err := r.pool.Query(ctx, query, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanTickets(ctx, rows)
}

func (r *ticketRepository) scanTickets(ctx context.Context, rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Reporter,
			&ticket.Priority,
			&ticket.Category,
			&ticket.Status,
			&ticket.AssignedTeam,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		suggestions, err := r.loadSuggestions(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Suggestions = suggestions
	}
	return result, nil
}

func (r *ticketRepository) loadSuggestions(ctx context.Context, ticketID int64) ([]string, error) {
	const query = `SELECT suggestion FROM ticket_suggestions WHERE ticket_id=$1 ORDER BY position`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var suggestions []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, rows.Err()
}

func (r *ticketRepository) replaceSuggestions(ctx context.Context, ticketID int64, suggestions []string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM ticket_suggestions WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	if len(suggestions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, s := range suggestions {
		batch.Queue(`INSERT INTO ticket_suggestions (ticket_id, position, suggestion) VALUES ($1,$2,$3)`,
			ticketID, i, s)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}
