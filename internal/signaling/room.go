package signaling

// Room holds the participants of one rendezvous key, in join order. The
// order is only used for "existing participants" replies, never for
// priority.
type Room struct {
	ID           string
	Participants []*Client
}

func (r *Room) add(c *Client) {
	r.Participants = append(r.Participants, c)
}

func (r *Room) remove(c *Client) bool {
	for i, p := range r.Participants {
		if p == c {
			r.Participants = append(r.Participants[:i], r.Participants[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) count() int { return len(r.Participants) }

func (r *Room) participantIDs() []string {
	ids := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		ids = append(ids, p.ID)
	}
	return ids
}

// idsExcept returns the ids of everyone but the given client, preserving
// join order.
func (r *Room) idsExcept(c *Client) []string {
	ids := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		if p != c {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
