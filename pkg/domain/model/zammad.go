package model

import (
	"slices"
	"strconv"
)

// ZammadUser is a destination user. Attrs holds the full record as returned by the API.
type ZammadUser struct {
	ID      int64
	Active  bool
	RoleIDs []int64
	Attrs   map[string]any
}

// Attr returns an attribute rendered as text, e.g. the identity field "email".
func (u *ZammadUser) Attr(name string) string {
	switch name {
	case "id":
		return strconv.FormatInt(u.ID, 10)
	}
	return Readable(u.Attrs[name])
}

// HasRoles reports whether every role in roles is assigned to the user.
func (u *ZammadUser) HasRoles(roles []int64) bool {
	for _, r := range roles {
		if !slices.Contains(u.RoleIDs, r) {
			return false
		}
	}
	return true
}

// Clone returns a deep enough copy to be cached independently of later mutation.
func (u *ZammadUser) Clone() *ZammadUser {
	if u == nil {
		return nil
	}
	c := *u
	c.RoleIDs = slices.Clone(u.RoleIDs)
	if u.Attrs != nil {
		c.Attrs = make(map[string]any, len(u.Attrs))
		for k, v := range u.Attrs {
			c.Attrs[k] = v
		}
	}
	return &c
}

// ZammadTicket is a destination ticket.
type ZammadTicket struct {
	ID     int64
	Number string
	Attrs  map[string]any
}

// Attr returns an attribute rendered as text. "id" and "number" read the typed fields.
func (t *ZammadTicket) Attr(name string) string {
	switch name {
	case "id":
		return strconv.FormatInt(t.ID, 10)
	case "number":
		return t.Number
	}
	return Readable(t.Attrs[name])
}

// ZammadArticle is a created ticket article.
type ZammadArticle struct {
	ID       int64
	TicketID int64
	Attrs    map[string]any
}
