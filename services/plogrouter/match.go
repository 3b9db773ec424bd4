package plogrouter

import "strings"

// MatchTopic reports whether an MQTT-style topic filter matches a concrete
// topic. '+' consumes exactly one level, a terminal '#' consumes the
// remainder including zero levels, literal segments match byte-for-byte.
// A '#' anywhere but the last level never matches.
//
//	MatchTopic("#", "anything")                      -> true
//	MatchTopic("sport/#", "sport")                   -> true
//	MatchTopic("sport/tennis/+", "sport/tennis/p1")  -> true
//	MatchTopic("sport/tennis/+", "sport/tennis/p1/ranking") -> false
func MatchTopic(filter, topic string) bool {
	if filter == "#" {
		return true
	}
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")
	for i, f := range fl {
		if f == "#" {
			return i == len(fl)-1
		}
		if i >= len(tl) {
			return false
		}
		if f == "+" {
			continue
		}
		if f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
