// Package repofs exposes project repositories on disk as a read-only,
// path-addressed documentation corpus.
//
// Each project lives in its own directory under the repositories root:
//
//	<repos_dir>/<project_slug>/docs/**/*.md
//
// Every path handed in by a caller goes through Resolve, which rejects
// anything that would leave the project root with types.ErrPathEscape.
// Escapes are detected lexically and again after symlink resolution.
//
// A Scope walks the markdown documents of one project and plugs into the
// lexical engine as a Walker:
//
//	scope, ok, err := repos.Docs("billing", "docs")
//	if err != nil || !ok {
//	    return
//	}
//	res, err := lexical.Search(ctx, query, scope.Walker(), opts)
package repofs
