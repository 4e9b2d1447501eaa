package engine

// Timeslot matching walks contacts in descending priority and offers
// each the first chronological window that fits: long enough for the
// contact's preferred activity, and in-person-capable when the contact
// prefers meeting in person. Windows are not consumed; several
// contacts may be offered the same open slot and the user picks one to
// act on.

// Assignment pairs a contact with a proposed window.
type Assignment struct {
	ContactID string
	Window    Window
}

// AssignWindows matches ranked contacts to windows. Contacts that fit
// no window land in unplaced. Zero windows is the "no availability"
// condition: the caller emits no time_bound suggestions and reports it,
// it is not an error.
func AssignWindows(ranked []Score, contacts map[string]ContactSignals, windows []Window) (assigned []Assignment, unplaced []string) {
	for _, sc := range ranked {
		c, ok := contacts[sc.ContactID]
		if !ok {
			continue
		}

		found := false
		for _, w := range windows {
			if w.Fits(c.ActivityDuration(), c.Mode) {
				assigned = append(assigned, Assignment{ContactID: c.ID, Window: w})
				found = true
				break
			}
		}
		if !found {
			unplaced = append(unplaced, c.ID)
		}
	}
	return assigned, unplaced
}

// FirstFit returns the first chronological window that fits every
// contact in the set, or false when none does. Used for group
// suggestions, where one slot must hold all members.
func FirstFit(members []ContactSignals, windows []Window) (Window, bool) {
	for _, w := range windows {
		ok := true
		for _, m := range members {
			if !w.Fits(m.ActivityDuration(), m.Mode) {
				ok = false
				break
			}
		}
		if ok {
			return w, true
		}
	}
	return Window{}, false
}
