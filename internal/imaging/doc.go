// Package imaging provides the numerical image primitives used by the hole
// detection pipeline.
//
// Everything operates on Grid, a row-major float64 image, or on flat []bool and
// []int masks of the same layout. Pixel (row, col) lives at index row*cols+col.
//
// # Filters
//
// Gaussian gradient magnitude and the Laplacian of Gaussian are computed
// separably with kernels truncated at 4σ. Borders are handled by reflection
// with the edge sample repeated, so a constant image has zero gradient.
//
// # Intensity Normalization
//
// RescaleInverted maps a grid onto 8 bits with inverted polarity (low becomes
// bright), CLAHE equalizes local contrast, and OtsuThreshold picks a global
// two-class split. Equalize chains the first two.
//
// # Morphology and Regions
//
//   - FillDisk rasterizes a filled circle into a mask
//   - DilateCross and GreyOpeningCross use the 4-connected cross
//   - LabelComponents numbers connected components
//   - Watershed floods a surface from integer seeds
//
// # Thread Safety
//
// All functions are pure: they allocate their outputs and never modify inputs,
// so they may be called concurrently.
package imaging
