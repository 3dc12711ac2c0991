package fsx

import (
	"html"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PresenceSnapshot is the full result of one poll. It is replaced wholesale
// every cycle and never merged, so no stale entry can outlive one interval.
type PresenceSnapshot struct {
	Users     []string
	Count     int
	FetchedAt time.Time
	IsError   bool
	ErrorText string
}

// PresenceRow is one rendered entry of the online-user list.
type PresenceRow struct {
	// Username is HTML-escaped and safe to inject into markup.
	Username string
	// Initial is the upper-cased first character for avatar rendering.
	Initial string
	Active  bool
}

// PresenceView is the render model for the presence region. Exactly one of
// Rows or Placeholder is populated.
type PresenceView struct {
	// Count is the server-authoritative total, or "-" after a failure.
	Count       string
	Rows        []PresenceRow
	Placeholder string
	// ErrorText is non-empty only after a failed poll.
	ErrorText string
}

// Placeholder and error texts shown in the presence region.
const (
	placeholderNoUsers      = "No users online"
	placeholderNoOtherUsers = "No other users online"
	placeholderUnavailable  = "Unable to load"
)

// BuildPresenceView turns a snapshot into its render model. Pure: the same
// snapshot, current user and selection always produce the same view. The
// current user and duplicate usernames are filtered here, at render time, so
// the raw count stays server-authoritative.
func BuildPresenceView(snap PresenceSnapshot, currentUser, selected string) PresenceView {
	if snap.IsError {
		return PresenceView{
			Count:       "-",
			Placeholder: placeholderUnavailable,
			ErrorText:   "Error: " + snap.ErrorText,
		}
	}

	view := PresenceView{Count: strconv.Itoa(snap.Count)}
	if len(snap.Users) == 0 {
		view.Placeholder = placeholderNoUsers
		return view
	}

	seen := make(map[string]struct{}, len(snap.Users))
	for _, u := range snap.Users {
		if u == currentUser {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		view.Rows = append(view.Rows, PresenceRow{
			Username: html.EscapeString(u),
			Initial:  initialOf(u),
			Active:   u == selected && selected != "",
		})
	}
	if len(view.Rows) == 0 {
		view.Placeholder = placeholderNoOtherUsers
	}
	return view
}

func initialOf(username string) string {
	if username == "" {
		return ""
	}
	return strings.ToUpper(string([]rune(username)[0]))
}

// SelectionList is the exclusive-selection state machine for the user list:
// selecting an entry clears every other one. No network effect.
type SelectionList struct {
	mu     sync.Mutex
	active string
}

// Select marks username as the single active entry.
func (s *SelectionList) Select(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = username
}

// Clear drops the selection.
func (s *SelectionList) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
}

// Active returns the currently selected username, or "".
func (s *SelectionList) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
