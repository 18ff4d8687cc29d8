package zammad

import (
	"encoding/json"
	"strconv"

	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
)

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case float64:
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toInt64s(v any) []int64 {
	list, ok := v.([]any)
	if !ok {
		return []int64{}
	}
	out := make([]int64, 0, len(list))
	for _, e := range list {
		if n, ok := toInt64(e); ok {
			out = append(out, n)
		}
	}
	return out
}

func decodeUser(attrs map[string]any) *model.ZammadUser {
	id, _ := toInt64(attrs["id"])
	active, _ := attrs["active"].(bool)
	return &model.ZammadUser{
		ID:      id,
		Active:  active,
		RoleIDs: toInt64s(attrs["role_ids"]),
		Attrs:   attrs,
	}
}

func decodeTicket(attrs map[string]any) *model.ZammadTicket {
	id, _ := toInt64(attrs["id"])
	return &model.ZammadTicket{
		ID:     id,
		Number: model.Readable(attrs["number"]),
		Attrs:  attrs,
	}
}

func decodeArticle(attrs map[string]any) *model.ZammadArticle {
	id, _ := toInt64(attrs["id"])
	ticketID, _ := toInt64(attrs["ticket_id"])
	return &model.ZammadArticle{
		ID:       id,
		TicketID: ticketID,
		Attrs:    attrs,
	}
}
