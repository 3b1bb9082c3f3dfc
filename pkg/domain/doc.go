/*
Package domain contains the core domain models of the EPA monitor.

An EPA (Enabledness-Preserving Abstraction) is a finite automaton describing
the legal usage protocol of a subject type: which abstract states an object
can be in and which actions move it between them. This package is kept pure
and free of I/O; loading, persistence and instrumentation live behind the
interfaces in package ports.

# Key Entities

  - Automaton: immutable set of states (one initial) and actions.
  - Transition: an observed (from, action, to) triple.
  - Subject: the identity under which a monitored object's transitions are recorded.
  - Taxonomy: the error categories used by exception policies, with their subtype relation.
  - Failure: the single opaque error kind returned by the monitor on fatal conditions.
*/
package domain
