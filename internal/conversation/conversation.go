// Package conversation folds a flat message table into per-counterparty conversations.
package conversation

import (
	"sort"

	"pulse/internal/models"
)

// Conversation is one entry of a viewer's inbox.
type Conversation struct {
	Counterparty *models.Profile `json:"counterparty"`
	LastMessage  *models.Message `json:"last_message"`
	UnreadCount  int             `json:"unread_count"`
}

// Assemble returns one conversation per distinct counterparty of viewerID, most recent first.
//
// messages must contain every message sent or received by viewerID. They are scanned
// newest first and the first message seen for a counterparty anchors its conversation,
// regardless of who sent it. UnreadCount counts unread messages from the counterparty
// to the viewer. Counterparties missing from profiles are reported by id only.
func Assemble(viewerID string, messages []*models.Message, profiles map[string]*models.Profile) []Conversation {
	ordered := newestFirst(messages)

	index := make(map[string]int)
	var out []Conversation

	for _, m := range ordered {
		if m.SenderID != viewerID && m.ReceiverID != viewerID {
			continue
		}
		counterparty := m.Counterparty(viewerID)

		i, seen := index[counterparty]
		if !seen {
			i = len(out)
			index[counterparty] = i
			out = append(out, Conversation{
				Counterparty: profileFor(counterparty, profiles),
				LastMessage:  m,
			})
		}
		if m.ReceiverID == viewerID && m.SenderID == counterparty && !m.IsRead {
			out[i].UnreadCount++
		}
	}

	if out == nil {
		return []Conversation{}
	}
	return out
}

// Counterparties lists the distinct counterparties of viewerID in messages.
func Counterparties(viewerID string, messages []*models.Message) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range messages {
		if m.SenderID != viewerID && m.ReceiverID != viewerID {
			continue
		}
		c := m.Counterparty(viewerID)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Thread returns the messages exchanged by viewerID and counterpartyID, oldest first.
// Messages between other pairs are dropped.
func Thread(viewerID, counterpartyID string, messages []*models.Message) []*models.Message {
	thread := make([]*models.Message, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		if (m.SenderID == viewerID && m.ReceiverID == counterpartyID) ||
			(m.SenderID == counterpartyID && m.ReceiverID == viewerID) {
			thread = append(thread, m)
		}
	}
	sort.SliceStable(thread, func(i, j int) bool {
		return thread[i].CreatedAt.Before(thread[j].CreatedAt)
	})
	return thread
}

// newestFirst returns a copy of messages sorted by CreatedAt descending; equal timestamps keep input order.
func newestFirst(messages []*models.Message) []*models.Message {
	ordered := make([]*models.Message, 0, len(messages))
	for _, m := range messages {
		if m != nil {
			ordered = append(ordered, m)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	return ordered
}

func profileFor(id string, profiles map[string]*models.Profile) *models.Profile {
	if p, ok := profiles[id]; ok && p != nil {
		return p
	}
	return &models.Profile{ID: id}
}
