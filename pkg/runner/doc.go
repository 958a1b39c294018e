/*
Package runner drives a tool page from a terminal.

It is the terminal counterpart of the HTTP and MCP adapters: it mounts a
visit, collects form values through a pluggable IOHandler, submits them,
and presents the results until the user quits.

# Key Components

  - Runner: the loop that moves a visit between the form and the results.
  - IOHandler: decouples how values are collected (prompts, JSON lines).
  - TextHandler: interactive prompts with optional markdown rendering.
  - JSONHandler: one JSON object per line, for scripts and pipes.

# Usage

	r := runner.NewRunner(engine,
		runner.WithRenderer(tui.NewRenderer()),
		runner.WithVisits(visits),
		runner.WithSessionID("alice"),
	)

	if _, err := r.Run(ctx, "route-optimizer"); err != nil {
		log.Fatal(err)
	}
*/
package runner
