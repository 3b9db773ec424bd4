package plogrouter

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTopicTable(t *testing.T) {
	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"#", "a/b", true},
		{"#", "anything", true},
		{"sport/#", "sport", true},
		{"sport/#", "sport/tennis", true},
		{"sport/tennis/player1/#", "sport/tennis/player1", true},
		{"sport/tennis/player1/#", "sport/tennis/player1/ranking", true},
		{"sport/tennis/player1/#", "sport/tennis/player1/score/wimbledon", true},
		{"sport/tennis/+", "sport/tennis/player1", true},
		{"sport/tennis/+", "sport/tennis/player2", true},
		{"sport/tennis/+", "sport/tennis/player1/ranking", false},
		{"sport/tennis", "sport/tennis", true},
		{"a/+/c", "a/b/c", true},
		{"a/+/c", "a/b/d", false},
		{"a/b/#", "a/b", true},
		{"a/b/#", "a/b/anything", true},
		{"a/b/#", "a/c", false},
		{"a/b", "a/b/c", false},
		{"a/b/c", "a/b", false},
		{"+", "a", true},
		{"+", "a/b", false},
		// '#' is only valid as the terminal level.
		{"sport/#/ranking", "sport/tennis/ranking", false},
		{"sport/tennis#", "sport/tennis", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, MatchTopic(c.filter, c.topic),
			"filter %q topic %q", c.filter, c.topic)
	}
}

// refMatch is an independent reference: recursive descent over levels.
func refMatch(f, t []string) bool {
	if len(f) == 0 {
		return len(t) == 0
	}
	if f[0] == "#" {
		return len(f) == 1
	}
	if len(t) == 0 {
		return false
	}
	if f[0] == "+" || f[0] == t[0] {
		return refMatch(f[1:], t[1:])
	}
	return false
}

func TestMatchTopicFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	levels := []string{"a", "b", "c", "+", "#"}
	gen := func(maxDepth int) string {
		n := 1 + rng.Intn(maxDepth)
		parts := make([]string, n)
		for i := range parts {
			parts[i] = levels[rng.Intn(len(levels))]
		}
		return strings.Join(parts, "/")
	}
	for i := 0; i < 1000; i++ {
		filter := gen(4)
		topic := gen(4)
		want := refMatch(strings.Split(filter, "/"), strings.Split(topic, "/"))
		// Special case the whole-tree filter like the implementation does.
		if filter == "#" {
			want = true
		}
		assert.Equal(t, want, MatchTopic(filter, topic),
			"filter %q topic %q", filter, topic)
	}
}
