package adapter

// RealtimeBroadcaster fans an event out to every live session of one user.
// Delivery is best-effort; there is no acknowledgement.
type RealtimeBroadcaster interface {
	Broadcast(userID, event string, payload any)
}
