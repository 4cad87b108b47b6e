package tool

import (
	"fmt"
	"regexp"

	"github.com/wispworks/wisp/api"
)

// userMarker matches the identity markers injected into the prompt context,
// of the form "[User Alice, pid: p-123]".
var userMarker = regexp.MustCompile(`\[User ([^,\]]+), pid: ([^\]]+)\]`)

// ResolveUser determines which participant a tool call refers to. Fixed
// precedence: an explicit pid argument, then the most recent user marker in
// the prompt context, then the single non-bot participant. Anything else is
// ambiguous and reported with a human-readable reason.
func ResolveUser(explicitPID, promptContext string, participants []api.Participant) (api.Participant, error) {
	if explicitPID != "" {
		for _, p := range participants {
			if p.PID == explicitPID {
				return p, nil
			}
		}
		return api.Participant{}, fmt.Errorf("%w: pid %q is not in the room", api.ErrAmbiguousUser, explicitPID)
	}

	if matches := userMarker.FindAllStringSubmatch(promptContext, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		pid := last[2]
		for _, p := range participants {
			if p.PID == pid {
				return p, nil
			}
		}
		return api.Participant{}, fmt.Errorf("%w: last speaker %q already left", api.ErrAmbiguousUser, pid)
	}

	var humans []api.Participant
	for _, p := range participants {
		if !p.Bot() {
			humans = append(humans, p)
		}
	}
	switch len(humans) {
	case 1:
		return humans[0], nil
	case 0:
		return api.Participant{}, fmt.Errorf("%w: no human participants in the room", api.ErrAmbiguousUser)
	default:
		return api.Participant{}, fmt.Errorf("%w: %d people are in the room and none was named", api.ErrAmbiguousUser, len(humans))
	}
}
