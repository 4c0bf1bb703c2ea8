package model

import "fmt"

// Action is a lifecycle action applied to a campaign.
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionStart, ActionPause, ActionResume, ActionStop:
		return a, nil
	}
	return "", fmt.Errorf("invalid action %q: must be one of start, pause, resume, stop", s)
}

// Transition is one row of the campaign state machine. RunsBatch marks
// rows that drain a batch of pending calls after the status is written.
type Transition struct {
	From      CampaignStatus
	Action    Action
	To        CampaignStatus
	RunsBatch bool
}

type transitionKey struct {
	from   CampaignStatus
	action Action
}

var transitions = buildTransitions([]Transition{
	{From: CampaignDraft, Action: ActionStart, To: CampaignRunning, RunsBatch: true},
	{From: CampaignRunning, Action: ActionStart, To: CampaignRunning, RunsBatch: true},
	{From: CampaignRunning, Action: ActionPause, To: CampaignPaused},
	{From: CampaignPaused, Action: ActionResume, To: CampaignRunning, RunsBatch: true},
	{From: CampaignDraft, Action: ActionStop, To: CampaignCompleted},
	{From: CampaignRunning, Action: ActionStop, To: CampaignCompleted},
	{From: CampaignPaused, Action: ActionStop, To: CampaignCompleted},
	{From: CampaignCompleted, Action: ActionStop, To: CampaignCompleted},
})

// buildTransitions panics on a malformed table so a bad edit fails at init.
func buildTransitions(rows []Transition) map[transitionKey]Transition {
	table := make(map[transitionKey]Transition, len(rows))
	for _, t := range rows {
		if !t.From.Valid() || !t.To.Valid() {
			panic(fmt.Sprintf("model: transition %s --%s--> %s uses an unknown status", t.From, t.Action, t.To))
		}
		if _, err := ParseAction(string(t.Action)); err != nil {
			panic("model: " + err.Error())
		}
		k := transitionKey{t.From, t.Action}
		if _, dup := table[k]; dup {
			panic(fmt.Sprintf("model: duplicate transition for %s/%s", t.From, t.Action))
		}
		table[k] = t
	}
	return table
}

// Lookup returns the transition for action applied in status from.
func Lookup(from CampaignStatus, action Action) (Transition, bool) {
	t, ok := transitions[transitionKey{from, action}]
	return t, ok
}
