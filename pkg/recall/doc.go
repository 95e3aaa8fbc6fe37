// Package recall embeds the indexing and retrieval engine in other Go
// programs.
//
// The recall binary is a thin layer over this package: everything the
// CLI does is reachable from here.
//
// # Usage
//
// Open an index, bring it up to date, and query it:
//
//	ix, err := recall.Open("/path/to/project")
//	if err != nil {
//		return err
//	}
//	defer ix.Close()
//
//	if _, err := ix.Update(ctx); err != nil {
//		return err
//	}
//
//	results, err := ix.Search(ctx, "login form validation", 5)
//
// Or keep the index synchronized with filesystem changes:
//
//	if err := ix.Watch(ctx); err != nil {
//		return err
//	}
//	defer ix.Stop(context.Background())
//
// Configuration is read from recall.yaml in the root, the user config,
// and RECALL_* environment variables; Open options override all three.
//
// # Thread Safety
//
// All methods on Index are safe for concurrent use. Queries never block
// indexing: they read a consistent, at worst slightly stale, view of
// the index.
package recall
