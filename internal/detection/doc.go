// Package detection finds and outlines holes in flattened AFM height maps.
//
// Holes appear as circular depressions. After an inverted contrast
// equalization they become bright blobs, which are located with a multi-scale
// Laplacian-of-Gaussian detector and then grown into full regions with a
// marker-controlled watershed.
//
// # Blob Detection
//
// DetectBlobs evaluates the scale-normalized Laplacian of Gaussian at every
// scale of Params and keeps the local maxima of the resulting (scale, row, col)
// volume. A blob of radius R peaks near sigma = R/√2, so each Blob reports
// Radius = Sigma·√2. Overlapping detections of the same hole at different
// scales are pruned, keeping the larger.
//
// # Segmentation
//
// Segment turns blobs into a heightmap.LabelMap:
//
//   - Pixels outside every (slightly dilated) blob disk seed the background
//   - A small disk at each blob centre seeds that hole
//   - The watershed floods the gradient magnitude of the equalized image, so
//     region borders settle on the steepest part of each hole wall
//
// Label 0 is background; holes are numbered from 1 in the raster order of their
// seed regions.
//
// # Coordinate System
//
// Positions are (row, col) with the origin at the top-left sample, matching
// heightmap.HeightMap.
//
// # Performance Considerations
//
// The detector filters the image once per scale, with kernels up to 8·MaxSigma
// wide, so cost grows with both image size and MaxSigma. Scales run
// concurrently on separate goroutines.
package detection
