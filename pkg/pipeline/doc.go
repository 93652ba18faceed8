// Package pipeline drives a staged spectroscopic reduction.
//
// Raw frames are inspected once and partitioned into roles (biases, flats, arcs, standard star, science target)
// using tag and attribute predicates. A fixed sequence of stages then feeds each role to an external reduction
// engine: bias, flats, arcs, standard and science. Master calibrations produced by the early stages are registered
// into a calibration store so that the engine can pick the best match for the later ones.
//
// Stages are executed strictly in order and never concurrently. The run stops on the first failing stage, and the
// partial RunResult is returned together with the error so that the user can resume by enabling only the remaining
// stages.
//
// Disabling an upstream stage does not disable the stages that depend on it. They run against whatever calibrations
// are already present in the store, and the runner logs a warning for every such gap.
package pipeline
