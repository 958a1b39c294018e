/*
Package domain contains the core domain models of the tooldeck page engine.

It defines the per-visit state of a tool page, the phase machine that drives
which view is shown, and the value types exchanged with the backend. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Phase: The tagged discriminator of a visit (fetching options, form, fetching results, results).
  - State: Captures the runtime snapshot of a visit (Options, FormData, Results, Notices).
  - ToolOptions / FormData / ResultPayload: The three payload shapes of the lifecycle.
  - Notice: A user-visible notification raised by a failed request.
*/
package domain
