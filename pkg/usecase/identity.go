package usecase

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/domain/types"
	"github.com/secmon-lab/jira2zammad/pkg/service/jira"
	"github.com/secmon-lab/jira2zammad/pkg/service/zammad"
	"github.com/secmon-lab/jira2zammad/pkg/utils/logging"
)

// IdentityResolver maps Jira users to Zammad users, creating, activating
// and promoting Zammad users as needed. Every change is recorded in the
// damage ledger first.
type IdentityResolver struct {
	jira    jira.Service
	zammad  zammad.Service
	damage  *DamageLedger
	mapping config.UserMapping
	poll    Poll

	cacheEnabled bool
	cache        map[types.Identity]*model.ZammadUser
	me           *model.ZammadUser

	searches int
}

// IdentityOption configures IdentityResolver
type IdentityOption func(*IdentityResolver)

// WithoutUserCache disables the identity cache. Newly created users are then
// polled until the search index returns them.
func WithoutUserCache() IdentityOption {
	return func(r *IdentityResolver) {
		r.cacheEnabled = false
	}
}

// WithUserPoll sets the visibility poll for newly created users.
func WithUserPoll(p Poll) IdentityOption {
	return func(r *IdentityResolver) {
		r.poll = p
	}
}

// NewIdentityResolver creates an IdentityResolver for one run.
func NewIdentityResolver(jiraSvc jira.Service, zammadSvc zammad.Service, damage *DamageLedger, mapping config.UserMapping, opts ...IdentityOption) *IdentityResolver {
	r := &IdentityResolver{
		jira:         jiraSvc,
		zammad:       zammadSvc,
		damage:       damage,
		mapping:      mapping,
		poll:         DefaultPoll,
		cacheEnabled: true,
		cache:        make(map[types.Identity]*model.ZammadUser),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *IdentityResolver) jiraKey() string {
	return cmp.Or(r.mapping.Key.Jira, config.DefaultUserKeyJira)
}

func (r *IdentityResolver) zammadKey() string {
	return cmp.Or(r.mapping.Key.Zammad, config.DefaultUserKeyZammad)
}

func (r *IdentityResolver) agentRoles() []int64 {
	if len(r.mapping.AgentRoleKeys) > 0 {
		return r.mapping.AgentRoleKeys
	}
	return config.DefaultAgentRoleKeys
}

// SourceIdentity returns the identity of a Jira user. When the embedded
// reference carries no valid address, the full user is looked up once.
func (r *IdentityResolver) SourceIdentity(ctx context.Context, user *model.JiraUser) (types.Identity, error) {
	if user == nil {
		return "", goerr.Wrap(ErrInvalidIdentity, "no user given")
	}
	if key := r.jiraKey(); key != config.DefaultUserKeyJira {
		logging.From(ctx).Warn("Unsupported user identity field", "field", key)
		return "", goerr.Wrap(ErrInvalidIdentity, "unsupported user identity field", goerr.V(FieldKey, key))
	}

	id := types.Identity(user.EmailAddress)
	if id.Validate() == nil {
		return id, nil
	}

	full, err := r.jira.LookupUser(ctx, user)
	if err != nil {
		return "", goerr.Wrap(ErrInvalidIdentity, "jira user lookup failed",
			goerr.V("user", user.String()), goerr.V("cause", err.Error()))
	}

	id = types.Identity(full.EmailAddress)
	if err := id.Validate(); err != nil {
		return "", goerr.Wrap(ErrInvalidIdentity, "jira user has no usable address",
			goerr.V("user", user.String()), goerr.V(IdentityKey, id.String()))
	}
	return id, nil
}

// EnsureUser returns the Zammad user for identity, creating or activating it
// when needed. With agent set, the user is also given the agent roles.
func (r *IdentityResolver) EnsureUser(ctx context.Context, identity types.Identity, agent bool) (*model.ZammadUser, error) {
	if identity == "" {
		return nil, goerr.Wrap(ErrInvalidIdentity, "empty identity")
	}
	key := identity.Lower()

	if r.cacheEnabled {
		if user, ok := r.cache[key]; ok {
			if agent {
				promoted, err := r.promote(ctx, user)
				if err != nil {
					return nil, err
				}
				r.cache[key] = promoted
				return promoted, nil
			}
			return user, nil
		}
	}

	matches, err := r.search(ctx, identity)
	if err != nil {
		return nil, err
	}

	var user *model.ZammadUser
	switch len(matches) {
	case 0:
		user, err = r.create(ctx, identity, agent)
	case 1:
		user, err = r.reuse(ctx, matches[0], agent)
	default:
		logging.From(ctx).Warn("Ambiguous zammad user, using first match",
			"identity", identity.String(), "matches", len(matches), "user_id", matches[0].ID)
		user = matches[0]
	}
	if err != nil {
		return nil, err
	}

	if r.cacheEnabled {
		r.cache[key] = user
	}
	return user, nil
}

// ServiceUser returns the user the Zammad client is authenticated as.
func (r *IdentityResolver) ServiceUser(ctx context.Context) (*model.ZammadUser, error) {
	if r.me != nil {
		return r.me, nil
	}
	me, err := r.zammad.Me(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get zammad service user")
	}
	r.me = me
	return me, nil
}

// search returns the users whose identity field matches exactly.
func (r *IdentityResolver) search(ctx context.Context, identity types.Identity) ([]*model.ZammadUser, error) {
	field := r.zammadKey()
	r.searches++

	found, err := r.zammad.SearchUsers(ctx, fmt.Sprintf("%s:%s", field, identity))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search zammad user", goerr.V(IdentityKey, identity.String()))
	}

	var matches []*model.ZammadUser
	for _, u := range found {
		if identity.Equal(types.Identity(u.Attr(field))) {
			matches = append(matches, u)
		}
	}
	return matches, nil
}

func (r *IdentityResolver) create(ctx context.Context, identity types.Identity, agent bool) (*model.ZammadUser, error) {
	params := map[string]any{r.zammadKey(): identity.String()}
	maps.Copy(params, r.mapping.Constants)
	if agent {
		params["role_ids"] = slices.Clone(r.agentRoles())
	}

	user, err := r.zammad.CreateUser(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create zammad user", goerr.V(IdentityKey, identity.String()))
	}
	logging.From(ctx).Info("Created zammad user", "identity", identity.String(), "user_id", user.ID, "agent", agent)

	if err := r.damage.Record(ctx, user.ID, map[string]any{
		"role_ids": []int64{},
		"active":   false,
	}); err != nil {
		return nil, err
	}

	if !r.cacheEnabled {
		err := r.poll.wait(ctx, func() (bool, error) {
			matches, err := r.search(ctx, identity)
			if err != nil {
				return false, err
			}
			return len(matches) > 0, nil
		})
		if err != nil {
			return nil, goerr.Wrap(err, "created user is not searchable", goerr.V(UserIDKey, user.ID))
		}
	}
	return user, nil
}

func (r *IdentityResolver) reuse(ctx context.Context, user *model.ZammadUser, agent bool) (*model.ZammadUser, error) {
	if !user.Active {
		if err := r.damage.Record(ctx, user.ID, map[string]any{"active": false}); err != nil {
			return nil, err
		}
		updated, err := r.zammad.UpdateUser(ctx, user.ID, map[string]any{"active": true})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to activate zammad user", goerr.V(UserIDKey, user.ID))
		}
		logging.From(ctx).Info("Activated zammad user", "user_id", user.ID)
		user = updated
	}

	if agent {
		return r.promote(ctx, user)
	}
	return user, nil
}

// promote adds the agent roles missing from user.
func (r *IdentityResolver) promote(ctx context.Context, user *model.ZammadUser) (*model.ZammadUser, error) {
	roles := r.agentRoles()
	if user.HasRoles(roles) {
		return user, nil
	}

	if err := r.damage.Record(ctx, user.ID, map[string]any{"role_ids": slices.Clone(user.RoleIDs)}); err != nil {
		return nil, err
	}

	union := slices.Concat(user.RoleIDs, roles)
	slices.Sort(union)
	union = slices.Compact(union)

	updated, err := r.zammad.UpdateUser(ctx, user.ID, map[string]any{"role_ids": union})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to promote zammad user to agent", goerr.V(UserIDKey, user.ID))
	}
	logging.From(ctx).Info("Promoted zammad user to agent", "user_id", user.ID, "role_ids", union)
	return updated, nil
}
