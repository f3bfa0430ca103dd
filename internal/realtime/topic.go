package realtime

import (
	"fmt"
	"sort"
	"strings"

	"pulse/internal/models"
)

// Topic identifies the rows a subscription watches: every row of Entity whose columns
// equal the values in Filter. An empty Filter watches the whole entity.
type Topic struct {
	Entity string
	Filter string
}

type condition struct {
	column string
	value  string
}

// NewTopic builds a topic from column/value pairs. Pair order does not matter.
func NewTopic(entity string, pairs ...string) Topic {
	conds := make([]condition, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		conds = append(conds, condition{column: pairs[i], value: pairs[i+1]})
	}
	sort.Slice(conds, func(i, j int) bool { return conds[i].column < conds[j].column })

	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.column + "=" + c.value
	}
	return Topic{Entity: entity, Filter: strings.Join(parts, "&")}
}

func (t Topic) String() string {
	if t.Filter == "" {
		return t.Entity
	}
	return t.Entity + "?" + t.Filter
}

func (t Topic) conditions() []condition {
	if t.Filter == "" {
		return nil
	}
	parts := strings.Split(t.Filter, "&")
	conds := make([]condition, 0, len(parts))
	for _, p := range parts {
		column, value, _ := strings.Cut(p, "=")
		conds = append(conds, condition{column: column, value: value})
	}
	return conds
}

func matches(conds []condition, change models.Change) bool {
	for _, c := range conds {
		if change.Fields[c.column] != c.value {
			return false
		}
	}
	return true
}

// Live views a client can open.
const (
	ViewFeed          = "feed"
	ViewTrending      = "trending"
	ViewPost          = "post"
	ViewComments      = "comments"
	ViewNotifications = "notifications"
	ViewConversations = "conversations"
	ViewThread        = "thread"
	ViewProfile       = "profile"
)

// TopicsFor returns the topics whose changes invalidate a view. subject is the post id
// (post, comments), the counterparty id (thread) or the profile id (profile).
func TopicsFor(view, viewerID, subject string) ([]Topic, error) {
	needSubject := func() error {
		if subject == "" {
			return fmt.Errorf("view %q needs an id", view)
		}
		return nil
	}

	switch view {
	case ViewFeed, ViewTrending:
		return []Topic{
			NewTopic(models.EntityPosts),
			NewTopic(models.EntityLikes),
			NewTopic(models.EntityComments),
		}, nil
	case ViewPost:
		if err := needSubject(); err != nil {
			return nil, err
		}
		return []Topic{
			NewTopic(models.EntityPosts, "id", subject),
			NewTopic(models.EntityLikes, "post_id", subject),
			NewTopic(models.EntityComments, "post_id", subject),
		}, nil
	case ViewComments:
		if err := needSubject(); err != nil {
			return nil, err
		}
		return []Topic{NewTopic(models.EntityComments, "post_id", subject)}, nil
	case ViewNotifications:
		return []Topic{NewTopic(models.EntityNotifications, "user_id", viewerID)}, nil
	case ViewConversations:
		return []Topic{
			NewTopic(models.EntityMessages, "receiver_id", viewerID),
			NewTopic(models.EntityMessages, "sender_id", viewerID),
		}, nil
	case ViewThread:
		if err := needSubject(); err != nil {
			return nil, err
		}
		return []Topic{
			NewTopic(models.EntityMessages, "sender_id", viewerID, "receiver_id", subject),
			NewTopic(models.EntityMessages, "sender_id", subject, "receiver_id", viewerID),
		}, nil
	case ViewProfile:
		if err := needSubject(); err != nil {
			return nil, err
		}
		return []Topic{
			NewTopic(models.EntityFollows, "followee_id", subject),
			NewTopic(models.EntityFollows, "follower_id", subject),
			NewTopic(models.EntityPosts, "user_id", subject),
		}, nil
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}
