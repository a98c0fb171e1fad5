// Package top implements the live table view: a header of meters, a tab bar
// of screens, the active screen's rows and a footer with the sort state.
//
// # Architecture
//
// The package uses the Bubble Tea framework, which follows The Elm Architecture
// (Model-Update-View pattern):
//
//   - Model: Holds the last rendered frame, selection, pause and help state
//   - Update: Processes keystrokes, ticks and finished refresh cycles
//   - View: Renders the current frame to a string for display
//
// # Message Flow
//
// The view operates on a tick-based refresh cycle:
//
//  1. tickMsg fires at the configured interval
//  2. refreshCmd() runs refresh.Cycle.Run in a command goroutine
//  3. frameMsg arrives with the rendered frame, replacing Model.frame
//  4. View() re-renders the table with new data
//
// Navigation keys call refresh.Cycle.Update, which re-sorts and re-renders
// the rows already held without fetching. Switching screens also starts a
// refresh so the new table's metrics are fetched.
//
// # Batch Output
//
// With --once, or when stdout is not a terminal, Run performs one cycle and
// prints the frame as plain text through PrintFrame.
package top
