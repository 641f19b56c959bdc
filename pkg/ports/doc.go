/*
Package ports defines the driven ports (interfaces) the taproot component consumes
from its host.

Taproot does not ship a dependency-injection container. Instead, it talks to whatever
component host embeds it through the narrow Scope interface: publish a value under a
name, publish a lazy per-scope factory under a name, and register a teardown callback
to run when the scope ends. Any host that can offer those three operations can carry
taproot; pkg/scope provides a ready-made in-memory implementation for embedders and
tests.

# Key Interfaces

  - Scope: the unit-of-work / lifecycle context resources are published into.
  - ResourceFactory: a lazy producer invoked at most once per scope per name.
  - TeardownFunc: a callback executed when the owning scope ends.
*/
package ports
