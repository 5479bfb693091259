// Package hsearch provides an embedded, segment-based full-text index
// backend for Go.
//
// An index is described by a types.IndexModel mapping field paths to field
// types. Each field type couples a codec (how values are indexed, stored and
// put in doc values) with a predicate factory (how queries on the field are
// built). A Backend owns several indexes; a Scope searches one or more of
// them at once and rejects fields that would be queried differently across
// the indexes it spans.
//
// # Quick Start
//
//	ctx := context.Background()
//	b, _ := hsearch.Open(ctx)
//	defer b.Close()
//
//	model := types.NewIndexModel("papers")
//	year, _ := types.Year(codec.WithDocValues(codec.DocValuesEnabled), codec.WithStorage(codec.StorageEnabled))
//	_ = model.AddField("year", year)
//
//	papers, _ := b.CreateIndex(ctx, model, directory.NewMemory())
//	_ = papers.Add(ctx, "1", map[string]any{"year": 1905})
//	_ = papers.Refresh()
//
//	scope, _ := b.Scope("papers")
//	q, _ := scope.Match("year", 1905)
//	res, _ := scope.Search(ctx, hsearch.SearchRequest{Query: q, Projections: []string{"year"}})
//	for i, ref := range res.References {
//	    fmt.Println(ref.IndexName, ref.ID, res.Projections[i]["year"])
//	}
//
// # Durability
//
// Writes are buffered in memory. Refresh makes them visible to scopes
// created afterwards; Commit writes segments and a manifest to the index
// directory. A later CreateIndex on the same directory loads the last
// commit. Directories live in the directory package and its subpackages
// (file system with selectable access strategy, S3, MinIO, Badger).
//
// # Null values
//
// A field configured with codec.WithIndexNullAs indexes nil values as a
// reserved sentinel. Matching nil finds those documents; ranges and
// aggregations never see them.
//
// # Observability
//
// Use WithLogger for structured logging and WithMetricsCollector for
// metrics; the metrics/prometheus package exports them to Prometheus.
package hsearch
