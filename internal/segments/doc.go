// Package segments keeps the live output directory bounded. The transcoder
// already trims its playlist window, but segments orphaned by crashes or
// restarts would otherwise accumulate until the disk fills. The janitor
// sweeps expired transport stream chunks on an interval and can clear the
// directory outright on boot.
package segments
