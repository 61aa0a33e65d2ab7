package models

// Bounds is a window rectangle in screen pixels
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowState is the host-tracked state of the main window
type WindowState struct {
	Maximized bool   `json:"maximized"`
	Minimized bool   `json:"minimized"`
	Visible   bool   `json:"visible"`
	Bounds    Bounds `json:"bounds"`
}

// DefaultWindowState is used until a state has been persisted
func DefaultWindowState() WindowState {
	return WindowState{
		Visible: true,
		Bounds:  Bounds{Width: 1280, Height: 800},
	}
}
