package roster

import "strings"

// Role is the closed set of job titles that gate navigation.
type Role int

const (
	Unknown Role = iota
	Driver
	FleetCoordinator
	PartTimeAux
)

const (
	labelDriver      = "Conductor"
	labelCoordinator = "Coordinador de flota"
	labelAux         = "Auxiliar de reparto"
)

// ParseRole maps a stored job title to a Role. Matching is trimmed and case-insensitive.
func ParseRole(s string) Role {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch {
	case norm == "":
		return Unknown
	case norm == strings.ToLower(labelCoordinator):
		return FleetCoordinator
	case strings.Contains(norm, "conductor"):
		return Driver
	case strings.Contains(norm, "auxiliar"):
		return PartTimeAux
	default:
		return Unknown
	}
}

// String returns the canonical label persisted in sessions.
func (r Role) String() string {
	switch r {
	case Driver:
		return labelDriver
	case FleetCoordinator:
		return labelCoordinator
	case PartTimeAux:
		return labelAux
	default:
		return ""
	}
}

// CanSubmitAttendance reports whether the role may fill the crew form.
func (r Role) CanSubmitAttendance() bool { return r == Driver }

// CanViewPanel reports whether the role may open the fleet control panel.
func (r Role) CanViewPanel() bool { return r == FleetCoordinator }

// Tab names as routed by the mobile client.
const (
	TabHome  = "index"
	TabAbout = "about"
	TabPanel = "panel_flota"
	TabForm  = "form_tripulacion"
)

// VisibleTabs lists the navigation tabs shown to a role, in display order.
func VisibleTabs(r Role) []string {
	tabs := []string{TabHome, TabAbout}
	if r.CanViewPanel() {
		tabs = append(tabs, TabPanel)
	}
	if r.CanSubmitAttendance() {
		tabs = append(tabs, TabForm)
	}
	return tabs
}
