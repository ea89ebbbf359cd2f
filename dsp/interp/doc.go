// Package interp projects irregularly sampled series onto a uniform grid.
//
// Camera frames arrive with timestamp jitter; [Resample] evaluates the
// piecewise-linear interpolant of such a series at a fixed step so that
// recursive filters designed for one sampling rate can run over it.
package interp
