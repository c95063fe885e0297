// Package dataset defines the dataset capability adapter: a uniform
// interface that resolves a dataset reference into train/validation
// feature-label sets, regardless of where the data comes from.
//
// # Sources
//
// A [Source] handles one reference form. Built-in sources:
//   - [SampleSource]: the "sample" reference, synthesizing a linear
//     regression dataset (row/feature counts from the request params)
//   - [CSVSource]: local *.csv paths
//   - [HTTPSource]: http(s):// URLs serving CSV
//
// [Resolver] tries its sources in registration order; the first whose
// Match accepts the reference resolves it. No match, an unreachable
// source, a missing target column, or an empty table all surface as
// [training.ErrDataset].
//
// # Splitting
//
// Rows are shuffled with the request seed and divided by the validation
// fraction. A fraction of zero yields no validation split — evaluation
// metrics are then simply omitted downstream, never defaulted.
package dataset
