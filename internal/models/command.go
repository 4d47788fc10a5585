package models

// ExportCommand is one of the two actions under File > Export as H5...
type ExportCommand int

const (
	ExportAll ExportCommand = iota
	ExportVisible
)

func (c ExportCommand) String() string {
	switch c {
	case ExportAll:
		return "export-all"
	case ExportVisible:
		return "export-visible"
	default:
		return "unknown"
	}
}

// MenuLabel is the menu item text.
func (c ExportCommand) MenuLabel() string {
	if c == ExportVisible {
		return "Only visible channels"
	}
	return "All channels"
}

// Prompt is shown with the save dialog.
func (c ExportCommand) Prompt() string {
	if c == ExportVisible {
		return "Save visible channels as"
	}
	return "Save all channels as"
}

var ExportCommands = []ExportCommand{ExportAll, ExportVisible}
