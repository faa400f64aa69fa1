// Package pkg provides the core libraries for clustermap.
//
// # Overview
//
// clustermap lays out a search-tuning tree (clusters → subclusters →
// models, filters and query results) as a map of boxes and connector lines,
// then lets a viewer pan, zoom, search and teleport around it while the
// viewport and the expand state persist between visits. The pkg directory is
// organized into four areas:
//
//  1. Data: [model] and [source] load and validate datasets.
//  2. Layout: [textmetrics] and [layout] turn a dataset into positioned boxes.
//  3. Interaction: [viewport], [search], [expand] and [schedule] hold the
//     live view state; [mapview] ties them into one session.
//  4. Infrastructure: [store], [config], [errors], [observability],
//     [render] and [server].
//
// # Architecture
//
//	JSON / YAML file, MongoDB
//	         ↓
//	    [source] (decode, validate, prepare)
//	         ↓
//	    [layout] (+ [textmetrics], [expand] state)
//	         ↓
//	    [mapview] session ── [viewport] ── [store]
//	         ↓                  [search]
//	    [render/svg], [render/nodelink], [server], terminal viewer
//
// # Quick Start
//
//	src, _ := source.NewFileSource("search.yaml")
//	ds, _ := src.Load(ctx)
//
//	sess, _ := mapview.New(ds, mapview.Options{Store: store.NewMemoryStore()})
//	sess.Open(ctx)
//	defer sess.Close()
//
//	sess.SetContainer(1280, 800)
//	sess.ToggleCluster(ctx, "c1")
//	if res := sess.Search(ctx, "beach"); len(res) > 0 {
//	    sess.Teleport(ctx, res[0])
//	}
//	os.WriteFile("map.svg", svg.Render(sess.Graph(), svg.WithViewport(sess.Viewport(), 1280, 800)), 0o644)
//
// # Persistence
//
// [store] backends hold two keys, [store.KeyViewport] and [store.KeyExpand]:
// file (CLI default), sqlite, redis (behind a circuit breaker), memory and
// null. The HTTP server scopes each session under its own key prefix.
//
// # Testing
//
//	go test ./...           # All tests
//	go test -short ./...    # Skip Graphviz rendering
//
// MongoDB tests run when CLUSTERMAP_TEST_MONGO_URI is set; redis tests when
// CLUSTERMAP_TEST_REDIS_ADDR is set.
package pkg
