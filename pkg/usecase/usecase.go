package usecase

import (
	"github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/service/jira"
	"github.com/secmon-lab/jira2zammad/pkg/service/zammad"
)

// UseCases wires the run-scoped components of one migration.
type UseCases struct {
	cfg          *config.Migration
	identityOpts []IdentityOption
	fieldOpts    []FieldMapperOption
	poll         Poll
	notifier     *Notifier

	Damage   *DamageLedger
	Identity *IdentityResolver
	Fields   *FieldMapper
	Comments *CommentMapper
	Tickets  *TicketFinder
	Links    *LinkMapper
	Migrator *Migrator
}

type Option func(*UseCases)

// WithIdentityOptions passes options to the IdentityResolver
func WithIdentityOptions(opts ...IdentityOption) Option {
	return func(uc *UseCases) {
		uc.identityOpts = append(uc.identityOpts, opts...)
	}
}

// WithFieldMapperOptions passes options to the FieldMapper
func WithFieldMapperOptions(opts ...FieldMapperOption) Option {
	return func(uc *UseCases) {
		uc.fieldOpts = append(uc.fieldOpts, opts...)
	}
}

// WithVisibilityPoll sets how long created tickets and users are waited for
func WithVisibilityPoll(p Poll) Option {
	return func(uc *UseCases) {
		uc.poll = p
	}
}

// WithNotifier posts the run summary through n
func WithNotifier(n *Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

func New(cfg *config.Migration, jiraSvc jira.Service, zammadSvc zammad.Service, damage *DamageLedger, opts ...Option) *UseCases {
	uc := &UseCases{
		cfg:    cfg,
		poll:   DefaultPoll,
		Damage: damage,
	}

	for _, opt := range opts {
		opt(uc)
	}

	identityOpts := append([]IdentityOption{WithUserPoll(uc.poll)}, uc.identityOpts...)
	uc.Identity = NewIdentityResolver(jiraSvc, zammadSvc, damage, cfg.Mapping.User, identityOpts...)
	uc.Fields = NewFieldMapper(uc.Identity, cfg.Mapping, uc.fieldOpts...)
	uc.Comments = NewCommentMapper(uc.Identity, cfg.Mapping.Comment.Constants)
	uc.Tickets = NewTicketFinder(zammadSvc, cfg.Mapping)
	uc.Links = NewLinkMapper(zammadSvc, uc.Tickets, cfg)
	uc.Migrator = &Migrator{
		cfg:      cfg,
		jira:     jiraSvc,
		zammad:   zammadSvc,
		damage:   damage,
		identity: uc.Identity,
		fields:   uc.Fields,
		comments: uc.Comments,
		tickets:  uc.Tickets,
		links:    uc.Links,
		notifier: uc.notifier,
		poll:     uc.poll,
	}

	return uc
}
