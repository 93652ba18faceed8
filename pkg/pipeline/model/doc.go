// Package model provides the data structures shared by the pipeline package and its run options.
// It defines the stage description handed to every option hook, the terminal states of a stage,
// and the RunOption interface implemented by the drawer and the measure.
package model
