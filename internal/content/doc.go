// Package content reads and writes Markdown pages stored in a GitHub
// repository through the contents API.
//
// A page named "about" lives at "<pages dir>/about.md". Every read returns
// the file's blob sha as the page Version; Save only writes when the remote
// sha still equals the version the edit was based on, and the write itself
// carries that sha so GitHub rejects a write that races another one.
//
// Results are reported as typed errors that classify into an Outcome:
//
//	page, err := store.Load(ctx, "about")
//	switch content.OutcomeOf(err) {
//	case content.OutcomeOK:
//	case content.OutcomeNotFound:      // offer to create the page
//	case content.OutcomeAuthRequired:  // start the device flow
//	case content.OutcomeConflict:      // reload, nothing was written
//	case content.OutcomeTransient:     // report, never retried
//	}
package content
