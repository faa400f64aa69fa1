// Package layout turns a cluster tree plus expand state into absolutely
// positioned boxes and connector lines.
//
// [Compute] is a pure function of its [Input]. It runs a single
// deterministic pass, left to right and top to bottom:
//
//   - every cluster gets a column max(1, subclusters) * MinSubColumnWidth wide
//   - an expanded cluster splits its column into one sub-column per subcluster
//   - an expanded subcluster with model or filter references gets a vertical
//     stack: Models, Filters, Results (when stats report filtered phrases)
//     and a View button
//
// Model and filter ids that no longer resolve in the catalogue are dropped
// from the rows and reported in [Diagnostics]; they never fail the layout.
//
// The output is recomputed from scratch on every change. There is no
// incremental diffing.
package layout
