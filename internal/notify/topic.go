package notify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const AdminTopic = "admin:dashboard"

const (
	userPrefix  = "user:"
	orderPrefix = "order:"
)

var ErrInvalidTopic = errors.New("invalid topic")

func UserTopic(userID int64) string {
	return userPrefix + strconv.FormatInt(userID, 10)
}

func OrderTopic(orderID int64) string {
	return orderPrefix + strconv.FormatInt(orderID, 10)
}

type TopicKind int

const (
	TopicUser TopicKind = iota + 1
	TopicOrder
	TopicAdmin
)

// ParseTopic splits a topic key into its family and numeric id. The admin
// topic has no id.
func ParseTopic(topic string) (TopicKind, int64, error) {
	if topic == AdminTopic {
		return TopicAdmin, 0, nil
	}

	var (
		kind TopicKind
		raw  string
	)
	switch {
	case strings.HasPrefix(topic, userPrefix):
		kind, raw = TopicUser, strings.TrimPrefix(topic, userPrefix)
	case strings.HasPrefix(topic, orderPrefix):
		kind, raw = TopicOrder, strings.TrimPrefix(topic, orderPrefix)
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return kind, id, nil
}
