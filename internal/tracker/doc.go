// Package tracker reconstructs per-application installation progress from
// the Intune Management Extension log during a Windows Autopilot
// enrollment.
//
// The agent's log is append-only, vendor-controlled and rotated by
// renaming; its message formats drift between agent releases. The engine
// therefore matches lines against regex rules supplied at runtime (see the
// rules package) instead of hardcoded formats, and tolerates every failure
// mode by degrading to "miss this one signal": a bad rule is dropped, a
// locked file is retried next tick, a malformed payload is skipped.
//
// Key behaviors:
//   - Byte-offset tailing of the whole log family with rotation detection,
//     archived files processed before the live log
//   - Per-app state machine with a current-app cursor for log lines that
//     imply but do not name an app
//   - Phase-boundary silencing: when the provisioning phase changes, every
//     known app is moved to the ignore set so the agent's re-reports of
//     finished installs do not register as new work
//   - One-shot completion detection per phase
//   - Replay mode that paces line processing from log timestamps,
//     compressed by a speed factor
//
// Example usage:
//
//	registry := rules.NewRegistry(logger)
//	registry.Compile(ruleset)
//
//	engine, err := tracker.NewEngine(tracker.Config{
//		LogDir:   `$ProgramData/Microsoft/IntuneManagementExtension/Logs`,
//		Registry: registry,
//		Sink:     sink,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := engine.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Stop()
package tracker
