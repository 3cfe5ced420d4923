package models

// EventInput is the payload for creating an event
type EventInput struct {
	Name   string      `json:"name" validate:"notblank"`
	Region string      `json:"region" validate:"notblank"`
	Status EventStatus `json:"status" validate:"omitempty,event_status"`
}

// RequestInput is the payload for creating a request
type RequestInput struct {
	EventID      string        `json:"event_id" validate:"notblank"`
	Category     Category      `json:"category" validate:"required,category"`
	Urgency      Urgency       `json:"urgency" validate:"required,urgency"`
	Location     string        `json:"location" validate:"notblank"`
	Description  string        `json:"description" validate:"notblank"`
	Status       RequestStatus `json:"status" validate:"omitempty,request_status"`
	AssigneeName *string       `json:"assignee_name"`
	AssigneeTeam *string       `json:"assignee_team"`
}

// RequestPatch is a partial update of a request. Only fields present in the
// payload are applied.
type RequestPatch struct {
	EventID      Optional[string]        `json:"event_id"`
	Status       Optional[RequestStatus] `json:"status"`
	Urgency      Optional[Urgency]       `json:"urgency"`
	Category     Optional[Category]      `json:"category"`
	Location     Optional[string]        `json:"location"`
	Description  Optional[string]        `json:"description"`
	AssigneeName Optional[string]        `json:"assignee_name"`
	AssigneeTeam Optional[string]        `json:"assignee_team"`
}

// Empty reports whether the patch carries no fields at all
func (p RequestPatch) Empty() bool {
	return len(p.Updates()) == 0
}

// Updates returns the column updates described by the patch, keyed by column
// name. Cleared fields map to nil.
func (p RequestPatch) Updates() map[string]interface{} {
	updates := make(map[string]interface{})
	if p.EventID.Set {
		updates["event_id"] = p.EventID.Value
	}
	if p.Status.Set {
		updates["status"] = string(p.Status.Value)
	}
	if p.Urgency.Set {
		updates["urgency"] = string(p.Urgency.Value)
	}
	if p.Category.Set {
		updates["category"] = string(p.Category.Value)
	}
	if p.Location.Set {
		updates["location"] = p.Location.Value
	}
	if p.Description.Set {
		updates["description"] = p.Description.Value
	}
	if p.AssigneeName.Set {
		updates["assignee_name"] = p.AssigneeName.OrNil()
	}
	if p.AssigneeTeam.Set {
		updates["assignee_team"] = p.AssigneeTeam.OrNil()
	}
	return updates
}
