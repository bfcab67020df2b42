// Package heightmap holds the data model shared by the hole detection pipeline.
//
// A HeightMap is a rows × cols grid of surface elevation samples as produced by an
// AFM height channel. A LabelMap is an integer grid of the same shape where 0 marks
// background and each positive value marks one candidate region. A ScaleFactor
// converts pixels to nanometers.
//
// # Coordinate System
//
// Samples are addressed as (row, col), both 0-based, with (0,0) at the top-left
// corner. Rows increase downward and columns increase rightward.
//
// # Immutability
//
// HeightMap and LabelMap values are never modified in place once constructed.
// Every accessor that exposes backing data returns a copy, and every transformation
// returns a new value. This makes the types safe to share between goroutines.
//
// # Loading
//
// The package can read plain-text numeric matrices (one row per line, the layout
// written by numpy.savetxt) and grayscale images. Proprietary instrument formats
// are out of scope; convert them to one of these first.
package heightmap
