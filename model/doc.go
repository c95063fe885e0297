// Package model defines the model capability adapter: a uniform [Trainer]
// interface over concrete regression algorithms, and the [Catalog] that
// maps kind names to trainer factories.
//
// The catalog is an explicit map built once at process initialization and
// passed into the engine as a dependency — there is no import-time
// self-registration. Resolving an unregistered kind returns
// [training.ErrUnknownModelKind] so a bad request fails the job instead of
// crashing the process.
//
// Built-in kinds:
//   - "linear_regression": gradient-descent least squares with optional L2
//   - "random_forest": bagged depth-bounded regression trees
//
// Fitted models serialize to msgpack artifacts and restore from them, so a
// hub upload can be round-tripped back into a usable trainer.
package model
