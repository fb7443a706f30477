// Package supervise decides when an external process has reached a terminal,
// judgeable state.
//
// A caller spawns a process, optionally forwards its output with
// [StreamLogs], and then waits on exactly one completion detector:
// [WaitForProcess] judges by exit code, [WaitForLogLine] by readiness or
// error markers in the output. [WaitForExit] only observes termination.
//
// Every wait returns nil on success or a *[Error] whose Kind says what went
// wrong. Waits never kill the process they observe, and they remove all of
// their listeners and timers before returning.
package supervise
