// Package sim launches photon packets from imported sources: collections of
// entities (stellar populations, star-forming regions, gas cells) whose
// spectra come from a shared spectral family.
//
// # Reading Guide
//
// Start with these files to understand a launch:
//   - source.go: ImportedSource setup, per-entity luminosities over the wavelength range
//   - allocation.go: biased distribution of history indices over entities
//   - emitter.go: per-packet wavelength, position, direction and Doppler shift
//   - segment.go: segmented parallel launches and tally merging
//
// # Architecture
//
// The sim package owns the launch engine; supporting pieces live in
// sub-packages:
//   - sim/table/: stored interpolated tables, resource lookup, spectral CDFs
//   - sim/sed/: spectral families built on tables (or analytic, like the 21 cm line)
//   - sim/snapshot/: entity containers, column text import, synthetic populations
//   - sim/units/: unit conversion for imported columns
//   - sim/trace/: per-entity launch tallies and summaries
//   - sim/store/: SQLite persistence of run summaries
//
// # Reproducibility
//
// Every history index h is launched from a random stream seeded by the
// simulation key and h alone, so packet contents do not depend on the worker
// count or on how indices are split into segments.
package sim
