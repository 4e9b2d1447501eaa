package reasoning

import "fmt"

// SchedulingPrompt wraps a structured ranking summary in instructions
// for a short, user-facing rationale. The caller computes the ranking;
// the provider only phrases it.
func SchedulingPrompt(summary string) string {
	return fmt.Sprintf(`You help schedule a small gathering of friends.
Below is a ranked list of candidate time windows with attendee coverage,
computed by the scheduler. Write a short (2-3 sentence) plain-language
explanation of the tradeoffs, recommending the top option. Do not invent
windows or attendees, and do not change the ranking.

%s

Rationale:`, summary)
}
