/*
Package ports defines the driven ports (interfaces) of the EPA monitor.

These interfaces decouple the monitor from the places its automaton comes
from, the places its transitions go to, and the sibling subsystems it has to
silence while it runs.

# Key Interfaces

  - AutomatonSource: loads the automaton (file, loam, memory).
  - DescriptionSource: also yields the error taxonomy and declarative bindings.
  - TransitionRecorder: the monitor's only output channel.
  - TraceReader: read side of recorders that persist traces (memory, file, redis, sqlite).
  - Suspendable: a subsystem the reentrancy guard switches off and restores.
*/
package ports
