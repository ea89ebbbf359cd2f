// Package sampler turns video frames into scalar photoplethysmography
// samples.
//
// A [Sampler] averages the R, G and B channels of every pixel inside a
// region of interest and reduces the three means to one feature value with
// an [Extractor]. The green channel carries the strongest blood-volume
// pulse and is the default; [Red] and [Chrom] are available as
// alternatives.
//
// A frame that is missing, truncated, or whose region of interest does not
// overlap the frame produces an error and no sample.
package sampler
