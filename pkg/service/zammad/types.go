package zammad

import (
	"context"

	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

// Service provides the Zammad REST API operations used by the migration
type Service interface {
	// Me returns the user the client is authenticated as
	Me(ctx context.Context) (*model.ZammadUser, error)

	// SearchUsers runs a user search and returns every page of results. The
	// search is fuzzy; callers filter for exact matches.
	SearchUsers(ctx context.Context, query string) ([]*model.ZammadUser, error)

	// FindUser fetches a user by id
	FindUser(ctx context.Context, id int64) (*model.ZammadUser, error)

	// CreateUser creates a user from params
	CreateUser(ctx context.Context, params map[string]any) (*model.ZammadUser, error)

	// UpdateUser updates the given attributes of a user
	UpdateUser(ctx context.Context, id int64, params map[string]any) (*model.ZammadUser, error)

	// SearchTickets runs a ticket search and returns every page of results
	SearchTickets(ctx context.Context, query string) ([]*model.ZammadTicket, error)

	// CreateTicket creates a ticket together with its initial article
	CreateTicket(ctx context.Context, params map[string]any) (*model.ZammadTicket, error)

	// AddTag adds a tag to a ticket
	AddTag(ctx context.Context, ticketID int64, tag string) error

	// CreateArticle creates an article on the ticket named by params["ticket_id"]
	CreateArticle(ctx context.Context, params map[string]any) (*model.ZammadArticle, error)

	// AddLink links the ticket with sourceNumber to the ticket targetID.
	// A duplicate link fails with model.ErrAlreadyExists.
	AddLink(ctx context.Context, targetID int64, sourceNumber string, linkType string) error
}
