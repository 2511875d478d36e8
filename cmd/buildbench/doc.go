// Package main hosts the buildbench CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, scans the workspace,
// and hands the resulting session to the subcommand: one-shot builds stream
// progress to the terminal, preset commands manage the saved selections, and
// `tui` opens the interactive selector over the same session.
//
// Keep this package thin. Behaviour belongs in the internal packages; commands
// here parse arguments, call into a session, and render the outcome.
package main
