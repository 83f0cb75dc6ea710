package replication

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Webhook payload types. Only the fields replication needs are modelled;
// JSON names follow GitHub's label event documentation.

type hookLabel struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type hookRepository struct {
	FullName string `json:"full_name"` // "owner/repo"
}

type hookFrom struct {
	From string `json:"from"`
}

type hookChanges struct {
	Name  *hookFrom `json:"name,omitempty"`
	Color *hookFrom `json:"color,omitempty"`
}

// labelPayload is the webhook payload of a "label" event
type labelPayload struct {
	Action     string         `json:"action"`
	Label      hookLabel      `json:"label"`
	Changes    *hookChanges   `json:"changes,omitempty"`
	Repository hookRepository `json:"repository"`
}

// ParseLabelEvent decodes a label webhook body
func ParseLabelEvent(body []byte) (LabelEvent, error) {
	var payload labelPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return LabelEvent{}, fmt.Errorf("decode label payload: %w", err)
	}
	if payload.Repository.FullName == "" {
		return LabelEvent{}, errors.New("label payload has no repository")
	}
	if payload.Label.Name == "" {
		return LabelEvent{}, errors.New("label payload has no label name")
	}

	event := LabelEvent{
		Action: Action(payload.Action),
		Repo:   payload.Repository.FullName,
		Name:   payload.Label.Name,
		Color:  payload.Label.Color,
	}
	if payload.Changes != nil && payload.Changes.Name != nil {
		event.PreviousName = payload.Changes.Name.From
	}
	return event, nil
}
