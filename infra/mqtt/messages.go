package mqtt

import (
	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/model"
)

// CallMessage is the JSON payload published for call events.
type CallMessage struct {
	MessageID string         `json:"message_id"`
	RunID     string         `json:"run_id"`
	Event     string         `json:"event"`
	CallID    int64          `json:"call_id"`
	AgencyID  string         `json:"agency_id"`
	Zone      string         `json:"zone"`
	Scenario  string         `json:"scenario"`
	Category  string         `json:"category,omitempty"`
	Priority  string         `json:"priority"`
	Status    string         `json:"status"`
	Units     []string       `json:"units"`
	Reason    string         `json:"reason,omitempty"`
	Location  model.Location `json:"location"`
	Timestamp int64          `json:"timestamp"`
}

// UnitMessage is the JSON payload published for unit status changes.
type UnitMessage struct {
	MessageID string `json:"message_id"`
	RunID     string `json:"run_id"`
	UnitID    string `json:"unit_id"`
	AgencyID  string `json:"agency_id"`
	Kind      string `json:"kind"`
	AI        bool   `json:"ai"`
	Old       string `json:"old"`
	New       string `json:"new"`
	CallID    int64  `json:"call_id,omitempty"`
	Duty      string `json:"duty,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Report actions accepted on the unit report topic.
const (
	ActionArrived   = "arrived"
	ActionCompleted = "completed"
	ActionDeclined  = "declined"
)

// ReportMessage is a unit report received from an external driver.
type ReportMessage struct {
	Action string `json:"action"`
}

func callMessage(e events.CallEvent) CallMessage {
	m := CallMessage{
		Event:     string(e.Type),
		AgencyID:  e.AgencyID,
		Reason:    e.Reason,
		Timestamp: e.At.UnixMilli(),
		Units:     []string{},
	}
	if c := e.Call; c != nil {
		m.CallID = c.ID
		m.Zone = c.ZoneID()
		m.Scenario = c.Scenario
		m.Category = c.Category
		m.Priority = c.Priority.String()
		m.Status = c.Status().String()
		m.Location = c.Location
		for _, u := range c.Units() {
			m.Units = append(m.Units, u.ID)
		}
	}
	return m
}

func unitMessage(e events.UnitStatusEvent) UnitMessage {
	m := UnitMessage{
		AgencyID:  e.AgencyID,
		Old:       e.Old.String(),
		New:       e.New.String(),
		Timestamp: e.At.UnixMilli(),
	}
	if u := e.Unit; u != nil {
		m.UnitID = u.ID
		m.Kind = u.Kind.String()
		m.AI = u.IsAIUnit
		if a := u.Assignment(); a != nil {
			if a.Call != nil {
				m.CallID = a.Call.ID
			} else if a.Duty != nil {
				m.Duty = a.Duty.Name
			}
		}
	}
	return m
}
