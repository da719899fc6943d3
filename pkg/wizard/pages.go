// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package wizard

import "fmt"

func (w *Wizard) nodeType() string {
	if w.parent.NodeType == "" {
		return "project"
	}
	return w.parent.NodeType
}

// Title returns the heading of the active page.
func (w *Wizard) Title() string {
	switch w.stage {
	case Warning:
		if w.parent.IsEmbargoed {
			return "End embargo early"
		}
		if w.parent.IsPublic {
			return "Make " + w.nodeType() + " private"
		}
		return "Warning"
	case Select:
		return "Change privacy settings"
	case Confirm:
		return "Projects and components affected"
	}
	return ""
}

// Message returns the body text of the active page.
func (w *Wizard) Message() string {
	t := w.nodeType()
	switch w.stage {
	case Warning:
		switch {
		case w.parent.IsEmbargoed:
			return "This registration is under embargo. Ending the embargo early asks every " +
				"administrator to approve making it public. They have 48 hours to respond."
		case w.parent.IsPreprint:
			return fmt.Sprintf("This %s holds a preprint. Making it private removes the preprint's "+
				"supplemental files from public view.", t)
		case w.parent.IsPublic:
			return fmt.Sprintf("Making a %s private removes it from public view and search results. "+
				"Public components stay public unless you change them on the next page.", t)
		default:
			return fmt.Sprintf("Making a %s public exposes its files, wiki and logs to anyone. "+
				"Choose which components to change on the next page.", t)
		}
	case Select:
		return fmt.Sprintf("Adjust privacy settings for this %s and its components. "+
			"Only nodes you administer can be changed.", t)
	case Confirm:
		return "The following projects and components will be changed. The change takes effect immediately."
	}
	return ""
}
