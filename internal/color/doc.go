// Package color styles adbforward's console output.
//
// Device lifecycle messages are colour coded the same way everywhere:
//   - Connected: green
//   - Disconnected: red
//   - Skipped (not on the allow-list): yellow
//   - Forwarded: bold green
//   - Remote command output: muted
//
// Colours adapt to the terminal through lipgloss; when output is not a
// terminal, or NO_COLOR is set, plain text is written.
//
// # Usage Example
//
//	color.Initialize(true)
//	console := color.NewConsole(os.Stdout)
//	console.Connected("1WMHH000000000")
//	console.Forwarded("1WMHH000000000", "hollywood")
//
// Console is safe for concurrent use; each message is written with a single
// call to the underlying writer.
package color
