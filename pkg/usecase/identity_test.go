package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/domain/model/config"
	"github.com/secmon-lab/jira2zammad/pkg/repository/memory"
	"github.com/secmon-lab/jira2zammad/pkg/usecase"
)

func newResolver(t *testing.T, j *mockJira, z *fakeZammad, opts ...usecase.IdentityOption) (*usecase.IdentityResolver, *usecase.DamageLedger) {
	t.Helper()
	ledger, err := usecase.NewDamageLedger(context.Background(), memory.NewDamage(nil), false)
	gt.NoError(t, err).Required()
	mapping := config.UserMapping{Constants: map[string]any{"organization": "Example"}}
	return usecase.NewIdentityResolver(j, z, ledger, mapping, opts...), ledger
}

func TestIdentityResolver_EnsureUser(t *testing.T) {
	ctx := context.Background()

	t.Run("second call is served from cache", func(t *testing.T) {
		z := newFakeZammad()
		z.addUser(7, "jane@example.com", true)
		r, _ := newResolver(t, &mockJira{}, z)

		first, err := r.EnsureUser(ctx, "jane@example.com", false)
		gt.NoError(t, err).Required()
		second, err := r.EnsureUser(ctx, "Jane@Example.com", false)
		gt.NoError(t, err).Required()

		gt.Value(t, first.ID).Equal(int64(7))
		gt.Value(t, second.ID).Equal(first.ID)
		gt.Value(t, r.SearchCount()).Equal(1)
	})

	t.Run("creates missing user and records damage", func(t *testing.T) {
		z := newFakeZammad()
		r, ledger := newResolver(t, &mockJira{}, z)

		user, err := r.EnsureUser(ctx, "new@example.com", true)
		gt.NoError(t, err).Required()
		gt.Value(t, z.createdUsers).Equal(1)
		gt.Value(t, user.RoleIDs).Equal([]int64{2})
		gt.Value(t, user.Attrs["organization"]).Equal(any("Example"))
		gt.Value(t, user.Attrs["email"]).Equal(any("new@example.com"))

		damage := ledger.Snapshot()
		gt.Value(t, damage[user.ID]["active"]).Equal(any(false))
		gt.Value(t, damage[user.ID]["role_ids"]).Equal(any([]int64{}))
	})

	t.Run("activates inactive user", func(t *testing.T) {
		z := newFakeZammad()
		z.addUser(9, "old@example.com", false, 3)
		r, ledger := newResolver(t, &mockJira{}, z)

		user, err := r.EnsureUser(ctx, "old@example.com", false)
		gt.NoError(t, err).Required()
		gt.Bool(t, user.Active).True()
		gt.Value(t, ledger.Snapshot()[9]).Equal(map[string]any{"active": false})
	})

	t.Run("promotes customer to agent", func(t *testing.T) {
		z := newFakeZammad()
		z.addUser(11, "cust@example.com", true, 3)
		r, ledger := newResolver(t, &mockJira{}, z)

		user, err := r.EnsureUser(ctx, "cust@example.com", true)
		gt.NoError(t, err).Required()
		gt.Value(t, user.RoleIDs).Equal([]int64{2, 3})
		gt.Value(t, ledger.Snapshot()[11]["role_ids"]).Equal(any([]int64{3}))

		gt.Array(t, z.updates).Length(1).Required()
		params := z.updates[0]["params"].(map[string]any)
		_, hasRoles := params["roles"]
		gt.Bool(t, hasRoles).False()
	})

	t.Run("promotes a cached user on agent request", func(t *testing.T) {
		z := newFakeZammad()
		z.addUser(12, "later@example.com", true, 3)
		r, _ := newResolver(t, &mockJira{}, z)

		_, err := r.EnsureUser(ctx, "later@example.com", false)
		gt.NoError(t, err).Required()
		user, err := r.EnsureUser(ctx, "later@example.com", true)
		gt.NoError(t, err).Required()
		gt.Value(t, user.RoleIDs).Equal([]int64{2, 3})
		gt.Value(t, r.SearchCount()).Equal(1)
	})

	t.Run("ignores fuzzy matches", func(t *testing.T) {
		z := newFakeZammad()
		z.addUser(20, "ann@example.com.evil", true)
		r, _ := newResolver(t, &mockJira{}, z)

		user, err := r.EnsureUser(ctx, "ann@example.com", false)
		gt.NoError(t, err).Required()
		gt.Value(t, user.ID).NotEqual(int64(20))
		gt.Value(t, z.createdUsers).Equal(1)
	})

	t.Run("takes first of ambiguous matches", func(t *testing.T) {
		z := newFakeZammad()
		z.addUser(30, "dup@example.com", true)
		z.addUser(31, "DUP@example.com", true)
		r, _ := newResolver(t, &mockJira{}, z)

		user, err := r.EnsureUser(ctx, "dup@example.com", false)
		gt.NoError(t, err).Required()
		gt.Value(t, user.ID).Equal(int64(30))
	})

	t.Run("empty identity", func(t *testing.T) {
		r, _ := newResolver(t, &mockJira{}, newFakeZammad())
		_, err := r.EnsureUser(ctx, "", false)
		gt.Error(t, err).Is(usecase.ErrInvalidIdentity)
	})

	t.Run("waits for created user without cache", func(t *testing.T) {
		z := newFakeZammad()
		r, _ := newResolver(t, &mockJira{}, z,
			usecase.WithoutUserCache(),
			usecase.WithUserPoll(usecase.Poll{Attempts: 3, Interval: time.Millisecond}),
		)

		_, err := r.EnsureUser(ctx, "poll@example.com", false)
		gt.NoError(t, err).Required()
		// one lookup plus one visibility check
		gt.Value(t, r.SearchCount()).Equal(2)

		_, err = r.EnsureUser(ctx, "poll@example.com", false)
		gt.NoError(t, err).Required()
		gt.Value(t, r.SearchCount()).Equal(3)
		gt.Value(t, z.createdUsers).Equal(1)
	})

	t.Run("gives up when created user never appears", func(t *testing.T) {
		z := newFakeZammad()
		z.searchUsersFn = func(context.Context, string) ([]*model.ZammadUser, error) {
			return nil, nil
		}
		r, _ := newResolver(t, &mockJira{}, z,
			usecase.WithoutUserCache(),
			usecase.WithUserPoll(usecase.Poll{Attempts: 2, Interval: time.Millisecond}),
		)

		_, err := r.EnsureUser(ctx, "ghost@example.com", false)
		gt.Error(t, err).Is(usecase.ErrVisibilityTimeout)
	})
}

func TestIdentityResolver_SourceIdentity(t *testing.T) {
	ctx := context.Background()
	j := &mockJira{users: map[string]*model.JiraUser{
		"jdoe": {Key: "jdoe", EmailAddress: "jane@example.com"},
		"bot":  {Key: "bot", EmailAddress: "not-an-address"},
	}}
	r, _ := newResolver(t, j, newFakeZammad())

	t.Run("embedded address", func(t *testing.T) {
		id, err := r.SourceIdentity(ctx, &model.JiraUser{EmailAddress: "john@example.com"})
		gt.NoError(t, err).Required()
		gt.Value(t, id.String()).Equal("john@example.com")
	})

	t.Run("falls back to user lookup", func(t *testing.T) {
		id, err := r.SourceIdentity(ctx, &model.JiraUser{Key: "jdoe"})
		gt.NoError(t, err).Required()
		gt.Value(t, id.String()).Equal("jane@example.com")
	})

	t.Run("lookup without usable address", func(t *testing.T) {
		_, err := r.SourceIdentity(ctx, &model.JiraUser{Key: "bot"})
		gt.Error(t, err).Is(usecase.ErrInvalidIdentity)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := r.SourceIdentity(ctx, &model.JiraUser{Key: "nobody"})
		gt.Error(t, err).Is(usecase.ErrInvalidIdentity)
	})

	t.Run("nil user", func(t *testing.T) {
		_, err := r.SourceIdentity(ctx, nil)
		gt.Error(t, err).Is(usecase.ErrInvalidIdentity)
	})
}

func TestIdentityResolver_ServiceUser(t *testing.T) {
	z := newFakeZammad()
	r, _ := newResolver(t, &mockJira{}, z)

	me, err := r.ServiceUser(context.Background())
	gt.NoError(t, err).Required()
	gt.Value(t, me.ID).Equal(int64(1))
}
