package statemachine

import (
	"errors"

	"qrdine-api/models"
)

// Actors allowed to drive transitions
const (
	ActorCustomer = "customer"
	ActorKitchen  = "kitchen"
	ActorAdmin    = "admin"
	ActorSystem   = "system" // auto-completion scheduler
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Kitchen marks an order ready, early or late — the prep window is advisory
	{From: models.StatusPreparing, To: models.StatusReady, Actor: ActorKitchen},
	{From: models.StatusPreparing, To: models.StatusReady, Actor: ActorAdmin},
	// Completion: manual at any time, or automatic once the window elapses
	{From: models.StatusPreparing, To: models.StatusCompleted, Actor: ActorKitchen},
	{From: models.StatusPreparing, To: models.StatusCompleted, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusCompleted, Actor: ActorSystem},
	{From: models.StatusReady, To: models.StatusCompleted, Actor: ActorKitchen},
	{From: models.StatusReady, To: models.StatusCompleted, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusCompleted, Actor: ActorSystem},
	// Admin-only terminal overrides
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusNoShow, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusNoShow, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusRejected, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusRejected, Actor: ActorAdmin},
	// Hand-off to the customer's table
	{From: models.StatusPreparing, To: models.StatusDelivered, Actor: ActorKitchen},
	{From: models.StatusPreparing, To: models.StatusDelivered, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusDelivered, Actor: ActorKitchen},
	{From: models.StatusReady, To: models.StatusDelivered, Actor: ActorAdmin},
}

// terminalStates admit no further transitions
var terminalStates = map[models.OrderStatus]bool{
	models.StatusCompleted: true,
	models.StatusCancelled: true,
	models.StatusNoShow:    true,
	models.StatusRejected:  true,
	models.StatusDelivered: true,
}

var knownStates = map[models.OrderStatus]bool{
	models.StatusPreparing: true,
	models.StatusReady:     true,
	models.StatusCompleted: true,
	models.StatusCancelled: true,
	models.StatusNoShow:    true,
	models.StatusRejected:  true,
	models.StatusDelivered: true,
}

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// IsTerminal reports whether a status admits no further transitions
func IsTerminal(status models.OrderStatus) bool {
	return terminalStates[status]
}

// IsKnown reports whether a status is part of the lifecycle at all
func IsKnown(status models.OrderStatus) bool {
	return knownStates[status]
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor string) error {
	key := transitionKey{From: from, To: to, Actor: actor}
	if transitionMap[key] {
		return nil
	}
	return errors.New(
		"invalid transition: " + string(from) + " → " + string(to) +
			" is not allowed for actor '" + actor + "'. " +
			"Valid transitions from " + string(from) + " are: " + describeValidFrom(from),
	)
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	result := ""
	for i, s := range nexts {
		if i > 0 {
			result += ", "
		}
		result += string(s)
	}
	return result
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
