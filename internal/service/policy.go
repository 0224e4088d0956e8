package service

import "postboard/internal/domain"

// Action is an operation an actor attempts on a post.
type Action int

const (
	ActionRead Action = iota
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Can reports whether actorID may perform action on post. Any authenticated
// actor may read; only the owner may update or delete.
func Can(actorID int64, post domain.Post, action Action) bool {
	switch action {
	case ActionRead:
		return true
	case ActionUpdate, ActionDelete:
		return actorID == post.OwnerID
	default:
		return false
	}
}
