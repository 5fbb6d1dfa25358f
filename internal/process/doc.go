// Package process runs the short-lived helper commands a session depends on
// (the device bridge and the sound server control tool).
//
// Exec wraps os/exec for one command at a time:
//   - Each invocation is logged at trace level with its full argument list
//   - Cancellation sends SIGINT to the command's process group, then SIGKILL
//     after a grace period
//   - Non-zero exits are reported as *CommandError carrying the exit code and
//     captured stderr
//
// Components depend on the Runner interface so tests can substitute the
// recording fake in package processtest.
package process
