package domain

import "strings"

// NoOne is the rendered assignee list of an unassigned item
const NoOne = "No one."

// RenderThreadText rebuilds the body of the escalation thread's root message
// from a snapshot. The first line of the existing message is preserved as the
// header; everything after it is owned by the reconciler and rewritten whole.
func RenderThreadText(header string, snap Snapshot) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\nStatus: ")
	b.WriteString(snap.Status)
	b.WriteString("\nAssignees: ")
	b.WriteString(RenderAssignees(snap.Assignees))
	return b.String()
}

// RenderAssignees joins logins with a trailing ", " after each one, or
// renders NoOne for an empty list. The trailing separator is part of the
// published format; existing threads depend on it.
func RenderAssignees(assignees []string) string {
	if len(assignees) == 0 {
		return NoOne
	}
	var b strings.Builder
	for _, login := range assignees {
		b.WriteString(login)
		b.WriteString(", ")
	}
	return b.String()
}

// Header returns the first line of an existing thread message
func Header(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
