package usecase_test

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"strings"

	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/service/jira"
	"github.com/secmon-lab/jira2zammad/pkg/service/zammad"
	goslack "github.com/slack-go/slack"
)

// mockJira is a mock implementation of jira.Service
type mockJira struct {
	issues   []*model.JiraIssue
	comments map[string][]*model.JiraComment
	users    map[string]*model.JiraUser
	files    map[string][]byte

	searchIssuesFn func(ctx context.Context, jql string, opt jira.SearchOption) iter.Seq2[*model.JiraIssue, error]
	downloads      int
	lookups        int
	lastJQL        string
}

var _ jira.Service = &mockJira{}

func (m *mockJira) SearchIssues(ctx context.Context, jql string, opt jira.SearchOption) iter.Seq2[*model.JiraIssue, error] {
	m.lastJQL = jql
	if m.searchIssuesFn != nil {
		return m.searchIssuesFn(ctx, jql, opt)
	}
	return func(yield func(*model.JiraIssue, error) bool) {
		for _, issue := range m.issues {
			if !yield(issue, nil) {
				return
			}
		}
	}
}

func (m *mockJira) Comments(_ context.Context, issueID string) ([]*model.JiraComment, error) {
	return m.comments[issueID], nil
}

func (m *mockJira) LookupUser(_ context.Context, user *model.JiraUser) (*model.JiraUser, error) {
	m.lookups++
	if u, ok := m.users[user.Key]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %q not found: %w", user.Key, model.ErrUpstreamFailure)
}

func (m *mockJira) Download(_ context.Context, a *model.JiraAttachment) ([]byte, error) {
	m.downloads++
	if data, ok := m.files[a.ID]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("attachment %s: %w", a.ID, model.ErrUpstreamFailure)
}

// fakeZammad keeps users and tickets in memory
type fakeZammad struct {
	me       *model.ZammadUser
	users    []*model.ZammadUser
	tickets  []*model.ZammadTicket
	articles []map[string]any
	tags     map[int64][]string
	links    []string
	updates  []map[string]any
	nextID   int64

	searchUsersFn func(ctx context.Context, query string) ([]*model.ZammadUser, error)
	updateUserFn  func(ctx context.Context, id int64, params map[string]any) (*model.ZammadUser, error)
	addLinkFn     func(ctx context.Context, targetID int64, sourceNumber, linkType string) error

	userSearches   int
	ticketSearches int
	createdUsers   int
}

var _ zammad.Service = &fakeZammad{}

func newFakeZammad() *fakeZammad {
	return &fakeZammad{
		me:     &model.ZammadUser{ID: 1, Active: true, RoleIDs: []int64{1, 2}, Attrs: map[string]any{"email": "svc@example.com"}},
		tags:   map[int64][]string{},
		nextID: 100,
	}
}

func (f *fakeZammad) addUser(id int64, email string, active bool, roles ...int64) *model.ZammadUser {
	u := &model.ZammadUser{ID: id, Active: active, RoleIDs: roles, Attrs: map[string]any{"email": email}}
	f.users = append(f.users, u)
	return u
}

func (f *fakeZammad) Me(_ context.Context) (*model.ZammadUser, error) {
	return f.me, nil
}

func (f *fakeZammad) SearchUsers(ctx context.Context, query string) ([]*model.ZammadUser, error) {
	f.userSearches++
	if f.searchUsersFn != nil {
		return f.searchUsersFn(ctx, query)
	}
	_, value, _ := strings.Cut(query, ":")
	var found []*model.ZammadUser
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.Attr("email")), strings.ToLower(value)) {
			found = append(found, u.Clone())
		}
	}
	return found, nil
}

func (f *fakeZammad) FindUser(_ context.Context, id int64) (*model.ZammadUser, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u.Clone(), nil
		}
	}
	return nil, fmt.Errorf("user %d: %w", id, model.ErrRecordNotFound)
}

func (f *fakeZammad) CreateUser(_ context.Context, params map[string]any) (*model.ZammadUser, error) {
	f.createdUsers++
	f.nextID++
	u := &model.ZammadUser{ID: f.nextID, Active: true, Attrs: maps.Clone(params)}
	if roles, ok := params["role_ids"].([]int64); ok {
		u.RoleIDs = roles
	}
	f.users = append(f.users, u)
	return u.Clone(), nil
}

func (f *fakeZammad) UpdateUser(ctx context.Context, id int64, params map[string]any) (*model.ZammadUser, error) {
	if f.updateUserFn != nil {
		return f.updateUserFn(ctx, id, params)
	}
	f.updates = append(f.updates, map[string]any{"id": id, "params": maps.Clone(params)})
	for _, u := range f.users {
		if u.ID != id {
			continue
		}
		if active, ok := params["active"].(bool); ok {
			u.Active = active
		}
		if roles, ok := params["role_ids"].([]int64); ok {
			u.RoleIDs = roles
		}
		return u.Clone(), nil
	}
	return nil, fmt.Errorf("user %d: %w", id, model.ErrRecordNotFound)
}

func (f *fakeZammad) SearchTickets(_ context.Context, _ string) ([]*model.ZammadTicket, error) {
	f.ticketSearches++
	return append([]*model.ZammadTicket(nil), f.tickets...), nil
}

func (f *fakeZammad) CreateTicket(_ context.Context, params map[string]any) (*model.ZammadTicket, error) {
	f.nextID++
	number := model.Readable(params["number"])
	t := &model.ZammadTicket{ID: f.nextID, Number: number, Attrs: params}
	f.tickets = append(f.tickets, t)
	return t, nil
}

func (f *fakeZammad) AddTag(_ context.Context, ticketID int64, tag string) error {
	f.tags[ticketID] = append(f.tags[ticketID], tag)
	return nil
}

func (f *fakeZammad) CreateArticle(_ context.Context, params map[string]any) (*model.ZammadArticle, error) {
	f.nextID++
	f.articles = append(f.articles, params)
	return &model.ZammadArticle{ID: f.nextID, Attrs: params}, nil
}

func (f *fakeZammad) AddLink(ctx context.Context, targetID int64, sourceNumber, linkType string) error {
	if f.addLinkFn != nil {
		return f.addLinkFn(ctx, targetID, sourceNumber, linkType)
	}
	f.links = append(f.links, fmt.Sprintf("%s->%d:%s", sourceNumber, targetID, linkType))
	return nil
}

// mockSlack is a mock implementation of slack.Service
type mockSlack struct {
	postMessageFn func(ctx context.Context, channelID string, blocks []goslack.Block, text string) (string, error)
}

func (m *mockSlack) PostMessage(ctx context.Context, channelID string, blocks []goslack.Block, text string) (string, error) {
	if m.postMessageFn != nil {
		return m.postMessageFn(ctx, channelID, blocks, text)
	}
	return "1700000000.000100", nil
}
