// Package anamnesis implements a multi-mind, multi-version belief store: a
// hierarchy of Minds, each holding an append-mostly DAG of States, each
// State holding versioned Beliefs about Subjects. Traits on a Belief resolve
// through the Belief's own base chain, then its Archetypes' multiple-
// inheritance schema, with optional composition across bases and a
// promotions-based fuzzy fallback when nothing resolves a value outright.
//
// A Materia mind is a simulated agent's (or a simulated world's) own
// epistemic store. Logos is the single primordial mind every Materia
// traces its ancestry to; Eidos holds the shared prototype beliefs every
// Materia's schema is built from. Register installs the process-wide
// Traittype/Archetype schema once per process lifetime; ResetRegistries
// tears it down for tests.
package anamnesis
