package access

import (
	"event-ticketing/internal/model"
	apperrors "event-ticketing/pkg/app_errors"
)

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
)

type Resource string

const (
	ResourceEvent   Resource = "event"
	ResourceBooking Resource = "booking"
	ResourceProfile Resource = "profile"
)

type Action string

const (
	ActionRead      Action = "read"
	ActionList      Action = "list"
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionCancel    Action = "cancel"
	ActionReserve   Action = "reserve"
	ActionReconcile Action = "reconcile" // 對帳：比較座位計數與訂位紀錄
)

type grant int

const (
	deny grant = iota
	allow
	// allowOwn grants the action only on rows owned by the principal
	allowOwn
)

type rule struct {
	role     Role
	resource Resource
	action   Action
}

// rules is the complete table; anything missing is denied.
var rules = map[rule]grant{
	{RoleAnonymous, ResourceEvent, ActionRead}: allow,
	{RoleAnonymous, ResourceEvent, ActionList}: allow,

	{RoleOwner, ResourceEvent, ActionRead}: allow,
	{RoleOwner, ResourceEvent, ActionList}: allow,
	{RoleAdmin, ResourceEvent, ActionRead}: allow,
	{RoleAdmin, ResourceEvent, ActionList}: allow,

	{RoleAdmin, ResourceEvent, ActionCreate}:    allow,
	{RoleAdmin, ResourceEvent, ActionUpdate}:    allow,
	{RoleAdmin, ResourceEvent, ActionDelete}:    allow,
	{RoleAdmin, ResourceEvent, ActionReconcile}: allow,

	{RoleOwner, ResourceBooking, ActionReserve}: allowOwn,
	{RoleOwner, ResourceBooking, ActionRead}:    allowOwn,
	{RoleOwner, ResourceBooking, ActionList}:    allowOwn,
	{RoleOwner, ResourceBooking, ActionCancel}:  allowOwn,
	{RoleAdmin, ResourceBooking, ActionReserve}: allowOwn,
	{RoleAdmin, ResourceBooking, ActionRead}:    allow,
	{RoleAdmin, ResourceBooking, ActionList}:    allow,
	{RoleAdmin, ResourceBooking, ActionCancel}:  allow,

	{RoleOwner, ResourceProfile, ActionRead}: allowOwn,
	{RoleAdmin, ResourceProfile, ActionRead}: allow,
}

// RoleOf maps the identity provider's assertion to a role.
func RoleOf(p model.Principal) Role {
	if p.UserID <= 0 {
		return RoleAnonymous
	}
	if p.IsAdmin {
		return RoleAdmin
	}
	return RoleOwner
}

type Policy interface {
	// Authorize checks action on resource. ownerID is the user owning the row,
	// or 0 when the resource has no owner (events, whole collections).
	Authorize(p model.Principal, resource Resource, action Action, ownerID int) error
}

type PolicyImpl struct{}

func NewPolicy() Policy {
	return PolicyImpl{}
}

func (PolicyImpl) Authorize(p model.Principal, resource Resource, action Action, ownerID int) error {
	role := RoleOf(p)
	switch rules[rule{role, resource, action}] {
	case allow:
		return nil
	case allowOwn:
		if ownerID == p.UserID {
			return nil
		}
	}
	if role == RoleAnonymous {
		return apperrors.ErrUnauthorized
	}
	return apperrors.ErrForbidden
}
